// Package payroll implements the Payroll Projector (C7): a pure
// calculation over attendance history, leave, and delay-permission data
// already collected elsewhere. It writes nothing; every field of Projection
// is derived.
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/internal/directory"
)

// LatenessSlab is one tier of the employer's lateness deduction rule: any
// net late minutes (after delay-permission offset) falling in
// (FromMinutes, ToMinutes] on a single day deducts DeductionPerDay of pay
// for that day. ToMinutes of 0 means "and above".
type LatenessSlab struct {
	FromMinutes    int
	ToMinutes      int
	DeductionPerDay decimal.Decimal
}

// DefaultLatenessSlabs is a conservative three-tier rule grounded on the
// spec's worked example (20 minutes net lateness deducting a half day):
// light lateness is a warning with no deduction, moderate lateness deducts
// a half day, and anything beyond an hour deducts a full day.
var DefaultLatenessSlabs = []LatenessSlab{
	{FromMinutes: 0, ToMinutes: 15, DeductionPerDay: decimal.Zero},
	{FromMinutes: 15, ToMinutes: 60, DeductionPerDay: decimal.NewFromFloat(0.5)},
	{FromMinutes: 60, ToMinutes: 0, DeductionPerDay: decimal.NewFromInt(1)},
}

// dailyDeductionFraction returns the fraction of a daily_rate deducted for
// netLateMinutes of lateness on one day, per the configured slabs.
func dailyDeductionFraction(netLateMinutes int, slabs []LatenessSlab) decimal.Decimal {
	if netLateMinutes <= 0 {
		return decimal.Zero
	}
	for _, slab := range slabs {
		if netLateMinutes > slab.FromMinutes && (slab.ToMinutes == 0 || netLateMinutes <= slab.ToMinutes) {
			return slab.DeductionPerDay
		}
	}
	return decimal.Zero
}

// DayRecord is one calendar day's attendance+permission facts, the input
// unit the projector folds over.
type DayRecord struct {
	Day              time.Time
	LateMinutes      int
	DelayGraceMinutes int
}

// Inputs bundles everything Project needs for one employee's range.
type Inputs struct {
	Employee            *directory.Employee
	Settings            *directory.CompanySettings
	From                time.Time
	To                  time.Time
	PresentDays         []DayRecord // from attendance.Repository.ListPresentDaysInRange, joined with delay permissions
	ApprovedLeaveDays    int
	Overtime            decimal.Decimal
	Bonuses             decimal.Decimal
	Penalties           decimal.Decimal
	LatenessSlabs       []LatenessSlab // nil uses DefaultLatenessSlabs
}

// Projection is the full breakdown C7 produces for one employee over one
// range, every field traceable back to a single spec formula.
type Projection struct {
	RangeDays              int
	WorkingDaysInRange     int
	PresentDaysInRange     int
	DailyRate              decimal.Decimal
	BasePayForRange        decimal.Decimal
	AllowancesForRange     decimal.Decimal
	AbsenceDaysInRange     int
	AbsenceDeduction       decimal.Decimal
	LatenessDeduction      decimal.Decimal
	InsuranceForRange      decimal.Decimal
	TaxForRange            decimal.Decimal
	Overtime               decimal.Decimal
	Bonuses                decimal.Decimal
	Penalties              decimal.Decimal
	Net                    decimal.Decimal
}

// Project computes the full payroll projection for one employee over
// [from, to], per §4.7's derived-quantity chain.
func Project(in Inputs) Projection {
	slabs := in.LatenessSlabs
	if slabs == nil {
		slabs = DefaultLatenessSlabs
	}

	workingDaysInMonth := in.Settings.WorkdaysPerMonth
	rangeDays := int(in.To.Sub(in.From).Hours()/24) + 1
	workingDaysInRange := rangeDays
	if workingDaysInMonth < workingDaysInRange {
		workingDaysInRange = workingDaysInMonth
	}

	presentDaysInRange := len(in.PresentDays)
	if presentDaysInRange > workingDaysInRange {
		presentDaysInRange = workingDaysInRange
	}

	workingDaysDec := decimal.NewFromInt(int64(workingDaysInMonth))
	dailyRate := in.Employee.BaseMonthlySalary.Div(workingDaysDec)
	presentDec := decimal.NewFromInt(int64(presentDaysInRange))
	basePay := dailyRate.Mul(presentDec)
	allowances := in.Employee.MonthlyAllowances.Div(workingDaysDec).Mul(presentDec)

	absenceDays := workingDaysInRange - presentDaysInRange - in.ApprovedLeaveDays
	if absenceDays < 0 {
		absenceDays = 0
	}
	absenceDeduction := dailyRate.Mul(decimal.NewFromInt(int64(absenceDays)))

	latenessDeduction := decimal.Zero
	for _, day := range in.PresentDays {
		netLate := day.LateMinutes - day.DelayGraceMinutes
		if netLate < 0 {
			netLate = 0
		}
		fraction := dailyDeductionFraction(netLate, slabs)
		if fraction.IsPositive() {
			latenessDeduction = latenessDeduction.Add(dailyRate.Mul(fraction))
		}
	}

	insuranceFull := applyRule(in.Employee.BaseMonthlySalary, in.Settings.InsuranceType, in.Settings.InsuranceValue)
	taxFull := applyRule(in.Employee.BaseMonthlySalary, in.Settings.TaxType, in.Settings.TaxValue)
	proration := presentDec.Div(workingDaysDec)
	insuranceForRange := insuranceFull.Mul(proration)
	taxForRange := taxFull.Mul(proration)

	net := basePay.
		Add(allowances).
		Add(in.Overtime).
		Add(in.Bonuses).
		Sub(absenceDeduction).
		Sub(latenessDeduction).
		Sub(in.Penalties).
		Sub(insuranceForRange).
		Sub(taxForRange)

	return Projection{
		RangeDays:          rangeDays,
		WorkingDaysInRange: workingDaysInRange,
		PresentDaysInRange: presentDaysInRange,
		DailyRate:          dailyRate,
		BasePayForRange:    basePay,
		AllowancesForRange: allowances,
		AbsenceDaysInRange: absenceDays,
		AbsenceDeduction:   absenceDeduction,
		LatenessDeduction:  latenessDeduction,
		InsuranceForRange:  insuranceForRange,
		TaxForRange:        taxForRange,
		Overtime:           in.Overtime,
		Bonuses:            in.Bonuses,
		Penalties:          in.Penalties,
		Net:                net,
	}
}

// applyRule computes a percentage-or-fixed deduction against baseMonthlySalary.
func applyRule(baseMonthlySalary decimal.Decimal, ruleType directory.InsuranceTaxType, value decimal.Decimal) decimal.Decimal {
	if ruleType == directory.RuleTypeFixed {
		return value
	}
	return baseMonthlySalary.Mul(value).Div(decimal.NewFromInt(100))
}
