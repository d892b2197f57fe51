package attendance_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/directory"
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

func setupEmployee(t *testing.T, ctx context.Context) (*directory.Branch, *directory.Employee) {
	t.Helper()

	branches := directory.NewBranchRepository(suite.DB)
	branch := suite.Fixtures.Branch(testutil.WithBranchName("Main Branch"))
	require.NoError(t, branches.Create(ctx, branch))

	employees := directory.NewEmployeeRepository(suite.DB)
	employee := suite.Fixtures.Employee(branch.ID, testutil.WithEmployeeName("Test Employee"))
	require.NoError(t, employees.Create(ctx, employee))

	return branch, employee
}

func TestRepository_InsertCheckIn_And_FindOpenSession(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-insert-checkin")
	tenantCtx := suite.CompanyContext(tenant)

	_, employee := setupEmployee(t, tenantCtx)

	repo := attendance.NewRepository(suite.DB)
	checkInTime := time.Now()
	entry := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    employee.BranchID,
		CheckInTime: checkInTime,
		CheckInLat:  24.7136,
		CheckInLng:  46.6753,
		Status:      attendance.StatusOnTime,
	}
	require.NoError(t, repo.InsertCheckIn(tenantCtx, entry))
	assert.NotEmpty(t, entry.ID)

	open, err := repo.FindOpenSession(tenantCtx, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, open.ID)
	assert.True(t, open.IsOpen())
}

func TestRepository_FindOpenSession_NoneOpen(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-no-open-session")
	tenantCtx := suite.CompanyContext(tenant)

	_, employee := setupEmployee(t, tenantCtx)

	repo := attendance.NewRepository(suite.DB)
	_, err := repo.FindOpenSession(tenantCtx, employee.ID)
	assert.Error(t, err, "an employee who never checked in has no open session")
}

func TestRepository_CloseSession(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-close-session")
	tenantCtx := suite.CompanyContext(tenant)

	_, employee := setupEmployee(t, tenantCtx)

	repo := attendance.NewRepository(suite.DB)
	entry := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    employee.BranchID,
		CheckInTime: time.Now().Add(-time.Hour),
		CheckInLat:  24.7136,
		CheckInLng:  46.6753,
		Status:      attendance.StatusOnTime,
	}
	require.NoError(t, repo.InsertCheckIn(tenantCtx, entry))

	lat, lng := 24.7136, 46.6753
	require.NoError(t, repo.CloseSession(tenantCtx, entry.ID, time.Now(), &lat, &lng, attendance.CheckoutTypeManual, attendance.CheckoutReasonManual))

	closed, err := repo.GetByID(tenantCtx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.CheckOutTime)
	assert.False(t, closed.IsOpen())

	// Closing an already-closed session is a conflict, not a silent no-op.
	err = repo.CloseSession(tenantCtx, entry.ID, time.Now(), &lat, &lng, attendance.CheckoutTypeManual, attendance.CheckoutReasonManual)
	assert.Error(t, err)
}

func TestRepository_OneOpenSessionPerEmployee(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-one-open-session")
	tenantCtx := suite.CompanyContext(tenant)

	_, employee := setupEmployee(t, tenantCtx)

	repo := attendance.NewRepository(suite.DB)
	first := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    employee.BranchID,
		CheckInTime: time.Now(),
		CheckInLat:  24.7136,
		CheckInLng:  46.6753,
		Status:      attendance.StatusOnTime,
	}
	require.NoError(t, repo.InsertCheckIn(tenantCtx, first))

	second := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    employee.BranchID,
		CheckInTime: time.Now(),
		CheckInLat:  24.7136,
		CheckInLng:  46.6753,
		Status:      attendance.StatusOnTime,
	}
	// one_open_session_per_employee is a DB-level partial unique index - this
	// must fail even without the service layer's serializable duplicate check.
	err := repo.InsertCheckIn(tenantCtx, second)
	assert.Error(t, err)
}

func TestRepository_ListPresentDaysInRange_CollapsesToDistinctDays(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-present-days")
	tenantCtx := suite.CompanyContext(tenant)

	_, employee := setupEmployee(t, tenantCtx)

	repo := attendance.NewRepository(suite.DB)
	day := time.Now().Add(-24 * time.Hour)

	first := &attendance.Log{
		CompanyID: tenant.ID, EmployeeID: employee.ID, BranchID: employee.BranchID,
		CheckInTime: day, CheckInLat: 24.7136, CheckInLng: 46.6753,
		Status: attendance.StatusLate, LateMinutes: 10,
	}
	require.NoError(t, repo.InsertCheckIn(tenantCtx, first))
	lat, lng := 24.7136, 46.6753
	require.NoError(t, repo.CloseSession(tenantCtx, first.ID, day.Add(time.Hour), &lat, &lng, attendance.CheckoutTypeManual, attendance.CheckoutReasonManual))

	second := &attendance.Log{
		CompanyID: tenant.ID, EmployeeID: employee.ID, BranchID: employee.BranchID,
		CheckInTime: day.Add(2 * time.Hour), CheckInLat: 24.7136, CheckInLng: 46.6753,
		Status: attendance.StatusOnTime, LateMinutes: 0,
	}
	require.NoError(t, repo.InsertCheckIn(tenantCtx, second))
	require.NoError(t, repo.CloseSession(tenantCtx, second.ID, day.Add(3*time.Hour), &lat, &lng, attendance.CheckoutTypeManual, attendance.CheckoutReasonManual))

	days, err := repo.ListPresentDaysInRange(tenantCtx, employee.ID, day.Add(-time.Hour), day.Add(24*time.Hour), "UTC")
	require.NoError(t, err)
	require.Len(t, days, 1, "two sessions on the same calendar day collapse into one DayPresence row")
	assert.Equal(t, 10, days[0].LateMinutes, "the day's max late_minutes must survive the collapse")
}
