package payroll

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/internal/directory"
)

func testEmployee(salary, allowances decimal.Decimal) *directory.Employee {
	return &directory.Employee{
		BaseMonthlySalary: salary,
		MonthlyAllowances: allowances,
	}
}

func testSettings() *directory.CompanySettings {
	return &directory.CompanySettings{
		WorkdaysPerMonth: 26,
		InsuranceType:    directory.RuleTypePercentage,
		InsuranceValue:   decimal.NewFromInt(5),
		TaxType:          directory.RuleTypePercentage,
		TaxValue:         decimal.NewFromInt(10),
	}
}

func TestProject_FullAttendanceNoAbsences(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)

	present := make([]DayRecord, 0, 26)
	for i := 0; i < 26; i++ {
		present = append(present, DayRecord{Day: from.AddDate(0, 0, i)})
	}

	p := Project(Inputs{
		Employee:    testEmployee(decimal.NewFromInt(2600), decimal.Zero),
		Settings:    testSettings(),
		From:        from,
		To:          to,
		PresentDays: present,
	})

	if p.PresentDaysInRange != 26 {
		t.Errorf("PresentDaysInRange = %d, want 26", p.PresentDaysInRange)
	}
	if !p.AbsenceDeduction.IsZero() {
		t.Errorf("AbsenceDeduction = %s, want 0", p.AbsenceDeduction)
	}
	if !p.DailyRate.Equal(decimal.NewFromInt(100)) {
		t.Errorf("DailyRate = %s, want 100", p.DailyRate)
	}
	if !p.BasePayForRange.Equal(decimal.NewFromInt(2600)) {
		t.Errorf("BasePayForRange = %s, want 2600", p.BasePayForRange)
	}
}

func TestProject_AbsenceDeduction(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)

	present := make([]DayRecord, 0, 20)
	for i := 0; i < 20; i++ {
		present = append(present, DayRecord{Day: from.AddDate(0, 0, i)})
	}

	p := Project(Inputs{
		Employee:    testEmployee(decimal.NewFromInt(2600), decimal.Zero),
		Settings:    testSettings(),
		From:        from,
		To:          to,
		PresentDays: present,
	})

	// 26 working days - 20 present - 0 leave = 6 absence days
	if p.AbsenceDaysInRange != 6 {
		t.Errorf("AbsenceDaysInRange = %d, want 6", p.AbsenceDaysInRange)
	}
	wantDeduction := decimal.NewFromInt(100).Mul(decimal.NewFromInt(6))
	if !p.AbsenceDeduction.Equal(wantDeduction) {
		t.Errorf("AbsenceDeduction = %s, want %s", p.AbsenceDeduction, wantDeduction)
	}
}

func TestProject_ApprovedLeaveOffsetsAbsence(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)

	present := make([]DayRecord, 0, 20)
	for i := 0; i < 20; i++ {
		present = append(present, DayRecord{Day: from.AddDate(0, 0, i)})
	}

	p := Project(Inputs{
		Employee:          testEmployee(decimal.NewFromInt(2600), decimal.Zero),
		Settings:          testSettings(),
		From:              from,
		To:                to,
		PresentDays:       present,
		ApprovedLeaveDays: 6,
	})

	if p.AbsenceDaysInRange != 0 {
		t.Errorf("AbsenceDaysInRange = %d, want 0 (fully offset by leave)", p.AbsenceDaysInRange)
	}
	if !p.AbsenceDeduction.IsZero() {
		t.Errorf("AbsenceDeduction = %s, want 0", p.AbsenceDeduction)
	}
}

func TestProject_LatenessDeductionAppliesSlab(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := Project(Inputs{
		Employee: testEmployee(decimal.NewFromInt(2600), decimal.Zero),
		Settings: testSettings(),
		From:     from,
		To:       to,
		PresentDays: []DayRecord{
			{Day: from, LateMinutes: 40, DelayGraceMinutes: 20},
		},
	})

	// net late = 40 - 20 = 20 minutes -> falls in the (15,60] slab -> half day deduction
	wantDeduction := p.DailyRate.Mul(decimal.NewFromFloat(0.5))
	if !p.LatenessDeduction.Equal(wantDeduction) {
		t.Errorf("LatenessDeduction = %s, want %s", p.LatenessDeduction, wantDeduction)
	}
}

func TestProject_DelayPermissionNeverReversesLateness(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := Project(Inputs{
		Employee: testEmployee(decimal.NewFromInt(2600), decimal.Zero),
		Settings: testSettings(),
		From:     from,
		To:       to,
		PresentDays: []DayRecord{
			{Day: from, LateMinutes: 10, DelayGraceMinutes: 30},
		},
	})

	if !p.LatenessDeduction.IsZero() {
		t.Errorf("LatenessDeduction = %s, want 0 (grace exceeds lateness, never reverses)", p.LatenessDeduction)
	}
}

func TestProject_InsuranceAndTaxProratedToRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)

	present := make([]DayRecord, 0, 13)
	for i := 0; i < 13; i++ {
		present = append(present, DayRecord{Day: from.AddDate(0, 0, i)})
	}

	p := Project(Inputs{
		Employee:    testEmployee(decimal.NewFromInt(2600), decimal.Zero),
		Settings:    testSettings(),
		From:        from,
		To:          to,
		PresentDays: present,
	})

	// Full-salary insurance (5%) = 130, prorated by 13/26 = half -> 65
	wantInsurance := decimal.NewFromInt(65)
	if !p.InsuranceForRange.Equal(wantInsurance) {
		t.Errorf("InsuranceForRange = %s, want %s", p.InsuranceForRange, wantInsurance)
	}
	wantTax := decimal.NewFromInt(130)
	if !p.TaxForRange.Equal(wantTax) {
		t.Errorf("TaxForRange = %s, want %s", p.TaxForRange, wantTax)
	}
}
