// Package payroll computes jurisdiction-specific statutory payroll figures.
// Every function is pure and total: bad input yields a zero-valued result,
// never a panic or an error.
package payroll

import "github.com/shopspring/decimal"

const (
	// JurisdictionMY and JurisdictionSG are the rate tables shipped today.
	JurisdictionMY = "MY"
	JurisdictionSG = "SG"
)

var (
	workingDaysPerMonth = decimal.NewFromInt(26)
	workingHoursPerDay  = decimal.NewFromInt(8)

	multiplierNormal  = decimal.RequireFromString("1.5")
	multiplierRest    = decimal.RequireFromString("2.0")
	multiplierHoliday = decimal.RequireFromString("3.0")

	// Overtime entitlement cuts off above this monthly salary unless the
	// employee does manual or supervisory work.
	overtimeSalaryCeiling = decimal.NewFromInt(4000)

	epfEmployeeRate = decimal.RequireFromString("0.11")
	epfEmployerRate = decimal.RequireFromString("0.13")

	socsoWageCap       = decimal.NewFromInt(6000)
	socsoBandWidth     = decimal.NewFromInt(100)
	socsoEmployeeRate  = decimal.RequireFromString("0.005")
	socsoEmployerRate  = decimal.RequireFromString("0.0175")
	socsoHalfBandWidth = decimal.NewFromInt(50)

	cpfEmployeeRate = decimal.RequireFromString("0.20")
	cpfEmployerRate = decimal.RequireFromString("0.17")
)

// OvertimePay computes an overtime payout. The ordinary rate of pay is
// monthly salary / 26 / 8, rounded to 2dp before the multiplier is applied.
// Employees above the salary ceiling are ineligible unless manualLabour is
// set, which forces eligibility regardless of salary.
func OvertimePay(monthlySalary, hours decimal.Decimal, day DayType, manualLabour bool) OvertimeResult {
	if monthlySalary.Sign() <= 0 || hours.Sign() <= 0 {
		return OvertimeResult{}
	}
	if !manualLabour && monthlySalary.GreaterThan(overtimeSalaryCeiling) {
		return OvertimeResult{Eligible: false}
	}

	hourly := monthlySalary.
		Div(workingDaysPerMonth).
		Div(workingHoursPerDay).
		Round(2)
	mult := overtimeMultiplier(day)

	return OvertimeResult{
		Eligible:   true,
		HourlyRate: hourly,
		Multiplier: mult,
		Amount:     hourly.Mul(mult).Mul(hours).Round(2),
	}
}

func overtimeMultiplier(day DayType) decimal.Decimal {
	switch day {
	case DayRest:
		return multiplierRest
	case DayPublicHoliday:
		return multiplierHoliday
	default:
		return multiplierNormal
	}
}

// EPFContribution computes Malaysian retirement-fund shares for the below-60
// age band: employee 11%, employer 13%. Rates for older bands are not
// published in our rate source and are intentionally absent.
func EPFContribution(monthlySalary decimal.Decimal) Contribution {
	if monthlySalary.Sign() <= 0 {
		return Contribution{Employee: decimal.Zero, Employer: decimal.Zero}
	}
	return Contribution{
		Employee: monthlySalary.Mul(epfEmployeeRate).Round(2),
		Employer: monthlySalary.Mul(epfEmployerRate).Round(2),
	}
}

// SOCSOContribution computes Malaysian social-insurance shares. Following the
// contribution schedule, the wage is slotted into an RM100 band and the rates
// apply to the band midpoint; the assessable wage is capped at RM6,000.
func SOCSOContribution(monthlySalary decimal.Decimal) Contribution {
	if monthlySalary.Sign() <= 0 {
		return Contribution{Employee: decimal.Zero, Employer: decimal.Zero}
	}

	wage := monthlySalary
	if wage.GreaterThan(socsoWageCap) {
		wage = socsoWageCap
	}

	// Band lower bound: the largest multiple of 100 strictly below the wage,
	// so an exact RM6,000 wage lands in the 5,900–6,000 band.
	lower := wage.Sub(decimal.New(1, -2)).Div(socsoBandWidth).Floor().Mul(socsoBandWidth)
	if lower.Sign() < 0 {
		lower = decimal.Zero
	}
	midpoint := lower.Add(socsoHalfBandWidth)

	return Contribution{
		Employee: midpoint.Mul(socsoEmployeeRate).Round(2),
		Employer: midpoint.Mul(socsoEmployerRate).Round(2),
	}
}

// CPFContribution computes Singaporean retirement shares on ordinary wages:
// employee 20%, employer 17%, no wage cap in this scope.
func CPFContribution(monthlySalary decimal.Decimal) Contribution {
	if monthlySalary.Sign() <= 0 {
		return Contribution{Employee: decimal.Zero, Employer: decimal.Zero}
	}
	return Contribution{
		Employee: monthlySalary.Mul(cpfEmployeeRate).Round(2),
		Employer: monthlySalary.Mul(cpfEmployerRate).Round(2),
	}
}

// StatutoryBreakdown aggregates all statutory components for a jurisdiction.
func StatutoryBreakdown(jurisdiction string, monthlySalary decimal.Decimal) Breakdown {
	zero := Contribution{Employee: decimal.Zero, Employer: decimal.Zero}
	b := Breakdown{
		Jurisdiction:    jurisdiction,
		Gross:           decimal.Zero,
		Retirement:      zero,
		SocialInsurance: zero,
		Net:             decimal.Zero,
	}
	if monthlySalary.Sign() <= 0 {
		return b
	}

	switch jurisdiction {
	case JurisdictionMY:
		b.Supported = true
		b.Gross = monthlySalary
		b.Retirement = EPFContribution(monthlySalary)
		b.SocialInsurance = SOCSOContribution(monthlySalary)
		b.Net = monthlySalary.
			Sub(b.Retirement.Employee).
			Sub(b.SocialInsurance.Employee)
	case JurisdictionSG:
		b.Supported = true
		b.Gross = monthlySalary
		b.Retirement = CPFContribution(monthlySalary)
		b.Net = monthlySalary.Sub(b.Retirement.Employee)
	}
	return b
}
