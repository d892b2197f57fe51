package directory_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func TestCompanyRepository_CreateSeedsSettings(t *testing.T) {
	ctx := context.Background()
	companies := directory.NewCompanyRepository(suite.DB)

	company, err := companies.Create(ctx, "Acme Logistics", "America/Sao_Paulo")
	require.NoError(t, err)
	assert.NotEmpty(t, company.ID)
	assert.Equal(t, "Acme Logistics", company.Name)

	fetched, err := companies.GetByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, company.ID, fetched.ID)

	settingsRepo := directory.NewSettingsRepository(suite.DB)
	settingsCtx := suite.CompanyContext(&testutil.TestTenant{ID: company.ID})
	settings, err := settingsRepo.Get(settingsCtx)
	require.NoError(t, err, "Create must seed exactly one company_settings row")
	assert.Equal(t, company.ID, settings.CompanyID)
	assert.Equal(t, "America/Sao_Paulo", settings.Timezone)
}

func TestCompanyRepository_Create_RejectsInvalidTimezone(t *testing.T) {
	ctx := context.Background()
	companies := directory.NewCompanyRepository(suite.DB)

	_, err := companies.Create(ctx, "Bad TZ Inc", "Not/A_Zone")
	require.Error(t, err)
}

func TestCompanyRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	companies := directory.NewCompanyRepository(suite.DB)

	_, err := companies.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
}

func TestBranchRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "Branch Co")
	tctx := suite.CompanyContext(tenant)

	branches := directory.NewBranchRepository(suite.DB)
	branch := &directory.Branch{
		Name:            "Downtown",
		Latitude:        24.7136,
		Longitude:       46.6753,
		GeofenceRadiusM: 100,
		IsActive:        true,
	}
	require.NoError(t, branches.Create(tctx, branch))
	assert.NotEmpty(t, branch.ID)
	assert.Equal(t, tenant.ID, branch.CompanyID)

	fetched, err := branches.GetByID(tctx, branch.ID)
	require.NoError(t, err)
	assert.Equal(t, branch.Name, fetched.Name)
}

func TestEmployeeRepository_CreateGetDeactivate(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "Employee Co")
	tctx := suite.CompanyContext(tenant)

	branches := directory.NewBranchRepository(suite.DB)
	branch := &directory.Branch{Name: "HQ", Latitude: 1, Longitude: 1, GeofenceRadiusM: 50, IsActive: true}
	require.NoError(t, branches.Create(tctx, branch))

	employees := directory.NewEmployeeRepository(suite.DB)
	employee := &directory.Employee{
		BranchID:          branch.ID,
		Name:              "Jamie Rivera",
		BaseMonthlySalary: decimal.NewFromInt(3000),
	}
	require.NoError(t, employees.Create(tctx, employee))
	assert.Equal(t, directory.EmployeeStatusActive, employee.Status)

	fetched, err := employees.GetByID(tctx, employee.ID)
	require.NoError(t, err)
	assert.True(t, fetched.IsActive())

	require.NoError(t, employees.Deactivate(tctx, employee.ID))
	after, err := employees.GetByID(tctx, employee.ID)
	require.NoError(t, err)
	assert.False(t, after.IsActive())
	assert.Equal(t, directory.EmployeeStatusTerminated, after.Status)
}

func TestEmployeeRepository_Deactivate_NotFound(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "Deactivate NotFound Co")
	tctx := suite.CompanyContext(tenant)

	employees := directory.NewEmployeeRepository(suite.DB)
	err := employees.Deactivate(tctx, "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
}

func TestSettingsRepository_GetAndUpdate(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "Settings Co")
	tctx := suite.CompanyContext(tenant)

	settingsRepo := directory.NewSettingsRepository(suite.DB)
	settings, err := settingsRepo.Get(tctx)
	require.NoError(t, err)

	assert.Equal(t, "UTC", settings.Timezone, "a company created without an explicit zone defaults to UTC")

	settings.Timezone = "Europe/Berlin"
	settings.AutoCheckoutEnabled = true
	settings.AfterSeconds = 600
	settings.StaleAfterHours = 12
	settings.InsuranceType = directory.RuleTypeFixed
	settings.InsuranceValue = decimal.NewFromInt(150)
	settings.TaxType = directory.RuleTypePercentage
	settings.TaxValue = decimal.NewFromFloat(0.1)
	settings.OvertimeMultiplier = decimal.NewFromFloat(1.5)
	require.NoError(t, settingsRepo.Update(tctx, settings))

	updated, err := settingsRepo.Get(tctx)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", updated.Timezone)
	assert.True(t, updated.AutoCheckoutEnabled)
	assert.Equal(t, 600, updated.AfterSeconds)
	assert.Equal(t, 12, updated.StaleAfterHours)
	assert.True(t, updated.InsuranceValue.Equal(decimal.NewFromInt(150)))
}

func TestLeaveRepository_CreateAndListApprovedInRange(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "Leave Co")
	tctx := suite.CompanyContext(tenant)

	branches := directory.NewBranchRepository(suite.DB)
	branch := &directory.Branch{Name: "Main", Latitude: 1, Longitude: 1, GeofenceRadiusM: 50, IsActive: true}
	require.NoError(t, branches.Create(tctx, branch))
	employees := directory.NewEmployeeRepository(suite.DB)
	employee := &directory.Employee{BranchID: branch.ID, Name: "On Leave", BaseMonthlySalary: decimal.NewFromInt(2000)}
	require.NoError(t, employees.Create(tctx, employee))

	leaves := directory.NewLeaveRepository(suite.DB)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, leaves.Create(tctx, &directory.Leave{
		EmployeeID: employee.ID,
		StartDate:  start,
		EndDate:    end,
	}))

	found, err := leaves.ListApprovedInRange(tctx, employee.ID,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "approved", found[0].Status)

	none, err := leaves.ListApprovedInRange(tctx, employee.ID,
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDelayPermissionRepository_CreateAndListInRange(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "Delay Co")
	tctx := suite.CompanyContext(tenant)

	branches := directory.NewBranchRepository(suite.DB)
	branch := &directory.Branch{Name: "Main", Latitude: 1, Longitude: 1, GeofenceRadiusM: 50, IsActive: true}
	require.NoError(t, branches.Create(tctx, branch))
	employees := directory.NewEmployeeRepository(suite.DB)
	employee := &directory.Employee{BranchID: branch.ID, Name: "Runs Late", BaseMonthlySalary: decimal.NewFromInt(2000)}
	require.NoError(t, employees.Create(tctx, employee))

	perms := directory.NewDelayPermissionRepository(suite.DB)
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, perms.Create(tctx, &directory.DelayPermission{
		EmployeeID:     employee.ID,
		PermissionDate: day,
		GraceMinutes:   20,
	}))

	found, err := perms.ListInRange(tctx, employee.ID,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 20, found[0].GraceMinutes)
}

func TestCorrectionRepository_RecordAndListForLog(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "Correction Co")
	tctx := suite.CompanyContext(tenant)

	branches := directory.NewBranchRepository(suite.DB)
	branch := &directory.Branch{Name: "Main", Latitude: 1, Longitude: 1, GeofenceRadiusM: 50, IsActive: true}
	require.NoError(t, branches.Create(tctx, branch))
	employees := directory.NewEmployeeRepository(suite.DB)
	employee := &directory.Employee{BranchID: branch.ID, Name: "Correction Target", BaseMonthlySalary: decimal.NewFromInt(2000)}
	require.NoError(t, employees.Create(tctx, employee))

	logs := attendance.NewRepository(suite.DB)
	logRow := &attendance.Log{
		CompanyID:   tenant.ID,
		EmployeeID:  employee.ID,
		BranchID:    branch.ID,
		CheckInTime: time.Now(),
		Status:      attendance.StatusOnTime,
	}
	require.NoError(t, logs.InsertCheckIn(tctx, logRow))

	corrections := directory.NewCorrectionRepository(suite.DB)
	correctedAt := time.Now()
	correctedBy := uuid.New().String()
	require.NoError(t, corrections.Record(tctx, &directory.AttendanceCorrection{
		AttendanceLogID:       logRow.ID,
		CorrectedBy:           correctedBy,
		Reason:                "device lost, employee confirmed end of shift by phone",
		CorrectedCheckOutTime: &correctedAt,
	}))

	found, err := corrections.ListForLog(tctx, logRow.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, correctedBy, found[0].CorrectedBy)
}
