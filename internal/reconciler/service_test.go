package reconciler_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/autocheckout"
	"github.com/attendly/attendance-core/internal/directory"
	"github.com/attendly/attendance-core/internal/heartbeat"
	"github.com/attendly/attendance-core/internal/reconciler"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}
	defer suite.Cleanup(ctx)
	defer testutil.TerminateContainer(ctx)

	os.Exit(m.Run())
}

func setupEmployee(t *testing.T, ctx context.Context) *directory.Employee {
	t.Helper()

	branches := directory.NewBranchRepository(suite.DB)
	branch := &directory.Branch{Name: "Branch", Latitude: 1, Longitude: 1, GeofenceRadiusM: 150, IsActive: true}
	require.NoError(t, branches.Create(ctx, branch))

	employees := directory.NewEmployeeRepository(suite.DB)
	employee := &directory.Employee{BranchID: branch.ID, Name: "Employee", BaseMonthlySalary: decimal.NewFromInt(2000)}
	require.NoError(t, employees.Create(ctx, employee))
	return employee
}

// TestService_Run_CancelsWhenRecoveredBeforeExec covers the final gate
// check: a PENDING row whose countdown elapsed, but whose last heartbeat
// shows the employee back in range before the sweep actually ran, must be
// cancelled rather than executed.
func TestService_Run_CancelsWhenRecoveredBeforeExec(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-reconciler-recovered")
	tenantCtx := suite.CompanyContext(tenant)

	employee := setupEmployee(t, tenantCtx)

	logsRepo := attendance.NewRepository(suite.DB)
	entry := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    employee.BranchID,
		CheckInTime: time.Now().Add(-time.Hour),
		CheckInLat:  1,
		CheckInLng:  1,
		Status:      attendance.StatusOnTime,
	}
	require.NoError(t, logsRepo.InsertCheckIn(tenantCtx, entry))

	hbRepo := heartbeat.NewRepository(suite.DB)
	require.NoError(t, hbRepo.Upsert(tenantCtx, &heartbeat.Heartbeat{
		EmployeeID: employee.ID, AttendanceLogID: entry.ID,
		Latitude: 1, Longitude: 1, InBranch: true, GPSOk: true,
	}))

	pendingRepo := autocheckout.NewRepository(suite.DB)
	err := suite.DB.WithTenantRLS(tenantCtx, tenant.ID, func(ctx context.Context) error {
		p := &autocheckout.Pending{
			CompanyID:       tenant.ID,
			AttendanceLogID: entry.ID,
			EmployeeID:      employee.ID,
			Reason:          autocheckout.ReasonOutsideBranch,
			EndsAt:          time.Now().Add(-time.Minute),
		}
		return pendingRepo.Create(ctx, p)
	})
	require.NoError(t, err)

	log := logger.New("reconciler-test", "test")
	svc := reconciler.NewService(suite.DB, pendingRepo, logsRepo, hbRepo, nil, log, 18)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Cancelled, 1)

	_, err = pendingRepo.GetOpenForLog(tenantCtx, entry.ID)
	assert.Error(t, err, "a recovered-before-exec row is cancelled, not left PENDING")

	still, err := logsRepo.GetByID(tenantCtx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, still.CheckOutTime, "recovery must cancel the proposal, never auto-checkout the session")
}

// TestService_Run_SweepsStaleOpenSessions covers the supplemented safety net
// for sessions nobody ever closed and that stopped sending heartbeats.
func TestService_Run_SweepsStaleOpenSessions(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-reconciler-stale-sweep")
	tenantCtx := suite.CompanyContext(tenant)

	employee := setupEmployee(t, tenantCtx)

	logsRepo := attendance.NewRepository(suite.DB)
	entry := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    employee.BranchID,
		CheckInTime: time.Now().Add(-48 * time.Hour),
		CheckInLat:  1,
		CheckInLng:  1,
		Status:      attendance.StatusOnTime,
	}
	require.NoError(t, logsRepo.InsertCheckIn(tenantCtx, entry))

	pendingRepo := autocheckout.NewRepository(suite.DB)
	hbRepo := heartbeat.NewRepository(suite.DB)
	log := logger.New("reconciler-test", "test")
	svc := reconciler.NewService(suite.DB, pendingRepo, logsRepo, hbRepo, nil, log, 18)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.StaleSessionsClosed, 1)

	closed, err := logsRepo.GetByID(tenantCtx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.CheckOutTime)
	assert.Equal(t, attendance.CheckoutTypeAuto, *closed.CheckoutType)
	assert.Equal(t, attendance.CheckoutReasonStale, *closed.CheckoutReason)
}

// TestService_Run_DoesNotSweepFreshOpenSessions ensures a session that is
// old but still reporting fresh heartbeats is left alone by the stale sweep.
func TestService_Run_DoesNotSweepFreshOpenSessions(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-reconciler-stale-sweep-fresh")
	tenantCtx := suite.CompanyContext(tenant)

	employee := setupEmployee(t, tenantCtx)

	logsRepo := attendance.NewRepository(suite.DB)
	entry := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    employee.BranchID,
		CheckInTime: time.Now().Add(-48 * time.Hour),
		CheckInLat:  1,
		CheckInLng:  1,
		Status:      attendance.StatusOnTime,
	}
	require.NoError(t, logsRepo.InsertCheckIn(tenantCtx, entry))

	hbRepo := heartbeat.NewRepository(suite.DB)
	require.NoError(t, hbRepo.Upsert(tenantCtx, &heartbeat.Heartbeat{
		EmployeeID: employee.ID, AttendanceLogID: entry.ID,
		Latitude: 1, Longitude: 1, InBranch: true, GPSOk: true,
	}))

	pendingRepo := autocheckout.NewRepository(suite.DB)
	log := logger.New("reconciler-test", "test")
	svc := reconciler.NewService(suite.DB, pendingRepo, logsRepo, hbRepo, nil, log, 18)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	still, err := logsRepo.GetByID(tenantCtx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, still.CheckOutTime, "a stale-by-age session with a fresh heartbeat must not be auto-closed")
}
