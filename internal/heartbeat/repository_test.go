package heartbeat_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/directory"
	"github.com/attendly/attendance-core/internal/heartbeat"
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

func setupOpenSession(t *testing.T, ctx context.Context, tenantID string) *attendance.Log {
	t.Helper()

	branches := directory.NewBranchRepository(suite.DB)
	branch := &directory.Branch{Name: "Branch", Latitude: 1, Longitude: 1, GeofenceRadiusM: 150, IsActive: true}
	require.NoError(t, branches.Create(ctx, branch))

	employees := directory.NewEmployeeRepository(suite.DB)
	employee := &directory.Employee{BranchID: branch.ID, Name: "Employee", BaseMonthlySalary: decimal.NewFromInt(2000)}
	require.NoError(t, employees.Create(ctx, employee))

	logs := attendance.NewRepository(suite.DB)
	entry := &attendance.Log{
		CompanyID: tenantID, EmployeeID: employee.ID, BranchID: branch.ID,
		CheckInTime: time.Now(), CheckInLat: 1, CheckInLng: 1,
		Status: attendance.StatusOnTime,
	}
	require.NoError(t, logs.InsertCheckIn(ctx, entry))
	return entry
}

func TestRepository_Upsert_OverwritesInPlace(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-heartbeat-upsert")
	tenantCtx := suite.CompanyContext(tenant)

	entry := setupOpenSession(t, tenantCtx, tenant.ID)
	repo := heartbeat.NewRepository(suite.DB)

	require.NoError(t, repo.Upsert(tenantCtx, &heartbeat.Heartbeat{
		EmployeeID: entry.EmployeeID, AttendanceLogID: entry.ID,
		Latitude: 1, Longitude: 1, InBranch: true, GPSOk: true,
	}))

	require.NoError(t, repo.Upsert(tenantCtx, &heartbeat.Heartbeat{
		EmployeeID: entry.EmployeeID, AttendanceLogID: entry.ID,
		Latitude: 2, Longitude: 2, InBranch: false, GPSOk: false,
	}))

	got, err := repo.Get(tenantCtx, entry.EmployeeID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Latitude, "a second tick for the same session must overwrite, not accumulate")
	assert.False(t, got.InBranch)
	assert.False(t, got.GPSOk)
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-heartbeat-delete")
	tenantCtx := suite.CompanyContext(tenant)

	entry := setupOpenSession(t, tenantCtx, tenant.ID)
	repo := heartbeat.NewRepository(suite.DB)

	require.NoError(t, repo.Upsert(tenantCtx, &heartbeat.Heartbeat{
		EmployeeID: entry.EmployeeID, AttendanceLogID: entry.ID,
		Latitude: 1, Longitude: 1, InBranch: true, GPSOk: true,
	}))
	require.NoError(t, repo.Delete(tenantCtx, entry.EmployeeID, entry.ID))

	_, err := repo.Get(tenantCtx, entry.EmployeeID, entry.ID)
	assert.Error(t, err, "a cleared session's heartbeat row must be gone, not just stale")
}

func TestHeartbeat_IsFresh(t *testing.T) {
	now := time.Now()
	fresh := &heartbeat.Heartbeat{LastSeenAt: now.Add(-30 * time.Second)}
	stale := &heartbeat.Heartbeat{LastSeenAt: now.Add(-5 * time.Minute)}

	assert.True(t, fresh.IsFresh(now))
	assert.False(t, stale.IsFresh(now))
}

func TestService_IsFreshAsOf(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-heartbeat-service-fresh")
	tenantCtx := suite.CompanyContext(tenant)

	entry := setupOpenSession(t, tenantCtx, tenant.ID)
	repo := heartbeat.NewRepository(suite.DB)
	svc := heartbeat.NewService(repo)

	require.NoError(t, svc.Record(tenantCtx, heartbeat.Input{
		EmployeeID: entry.EmployeeID, AttendanceLogID: entry.ID,
		Latitude: 1, Longitude: 1, InBranch: true, GPSOk: true,
	}))

	fresh, hb, err := svc.IsFreshAsOf(tenantCtx, entry.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, fresh)
	require.NotNil(t, hb)

	require.NoError(t, svc.Clear(tenantCtx, entry.EmployeeID, entry.ID))
	fresh, hb, err = svc.IsFreshAsOf(tenantCtx, entry.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, fresh, "no heartbeat row at all must report not-fresh, not an error")
	assert.Nil(t, hb)
}
