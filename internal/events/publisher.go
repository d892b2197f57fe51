// Package events publishes the attendance domain's lifecycle events onto the
// message bus, adapting pkg/messaging's generic Publisher to the four event
// types this core emits.
package events

import (
	"context"

	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/pkg/messaging"
)

// Publisher publishes attendance lifecycle events.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates an attendance event publisher.
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAttendanceEvents, "attendance-api", log)
	if err != nil {
		return nil, err
	}
	return &Publisher{publisher: publisher, logger: log}, nil
}

// PublishCheckedIn emits attendance.checked_in.
func (p *Publisher) PublishCheckedIn(ctx context.Context, data messaging.AttendanceCheckedInEvent) {
	if err := p.publisher.Publish(ctx, messaging.EventAttendanceCheckedIn, data); err != nil {
		p.logger.Error().Err(err).Str("attendance_log_id", data.AttendanceLogID).Msg("failed to publish attendance.checked_in")
	}
}

// PublishCheckedOut emits attendance.checked_out.
func (p *Publisher) PublishCheckedOut(ctx context.Context, data messaging.AttendanceCheckedOutEvent) {
	if err := p.publisher.Publish(ctx, messaging.EventAttendanceCheckedOut, data); err != nil {
		p.logger.Error().Err(err).Str("attendance_log_id", data.AttendanceLogID).Msg("failed to publish attendance.checked_out")
	}
}

// PublishAutoCheckoutPending emits attendance.auto_checkout.pending.
func (p *Publisher) PublishAutoCheckoutPending(ctx context.Context, data messaging.AttendanceAutoCheckoutPendingEvent) {
	if err := p.publisher.Publish(ctx, messaging.EventAttendanceAutoCheckoutPending, data); err != nil {
		p.logger.Error().Err(err).Str("pending_id", data.PendingID).Msg("failed to publish attendance.auto_checkout.pending")
	}
}

// PublishAutoCheckoutDone emits attendance.auto_checkout.done.
func (p *Publisher) PublishAutoCheckoutDone(ctx context.Context, data messaging.AttendanceAutoCheckoutDoneEvent) {
	if err := p.publisher.Publish(ctx, messaging.EventAttendanceAutoCheckoutDone, data); err != nil {
		p.logger.Error().Err(err).Str("pending_id", data.PendingID).Msg("failed to publish attendance.auto_checkout.done")
	}
}
