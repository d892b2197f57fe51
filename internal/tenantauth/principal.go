// Package tenantauth implements the Tenant Gatekeeper (C1): it resolves
// opaque credentials into a Principal and makes company_id available to
// every downstream call, never trusting a company_id carried on the
// request payload itself.
package tenantauth

import (
	"context"

	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// SubjectKind identifies who is acting.
type SubjectKind string

const (
	SubjectAdmin    SubjectKind = "admin"
	SubjectEmployee SubjectKind = "employee"
)

// Principal is the server-derived identity threaded through every call.
// It is never reconstructed from request body fields.
type Principal struct {
	SubjectKind SubjectKind
	SubjectID   string
	CompanyID   string
	DeviceID    string // set only for SubjectEmployee
}

// IsAdmin reports whether the principal may perform administrative mutations.
func (p Principal) IsAdmin() bool {
	return p.SubjectKind == SubjectAdmin
}

// OwnsEmployee reports whether the principal may write the given employee's
// own attendance/leave/heartbeat rows.
func (p Principal) OwnsEmployee(employeeID string) bool {
	return p.SubjectKind == SubjectEmployee && p.SubjectID == employeeID
}

type principalKey struct{}

// WithPrincipal attaches the principal to ctx and sets the tenant ID
// derived from it, so repository-layer RLS lookups (tenant.TenantID) and
// capability checks share one source of truth.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	return tenant.WithTenantID(ctx, p.CompanyID)
}

// FromContext retrieves the principal set by WithPrincipal.
func FromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok {
		return Principal{}, errors.Unauthenticated("no principal in context")
	}
	return p, nil
}

// RequireCompanyMatch enforces P2 tenant isolation for a resource whose
// company_id was read from storage: the principal's company_id is the only
// authority, this is a defense-in-depth check against callers that pass a
// company_id explicitly (e.g. in a path parameter).
func RequireCompanyMatch(p Principal, resourceCompanyID string) error {
	if p.CompanyID != resourceCompanyID {
		return errors.TenantMismatch()
	}
	return nil
}
