package payroll

import "github.com/shopspring/decimal"

// DayType selects the overtime multiplier.
type DayType string

const (
	DayNormal        DayType = "normal"
	DayRest          DayType = "rest"
	DayPublicHoliday DayType = "public_holiday"
)

// Contribution holds the employee and employer shares of one statutory fund.
type Contribution struct {
	Employee decimal.Decimal
	Employer decimal.Decimal
}

// OvertimeResult is the full working of an overtime payout.
type OvertimeResult struct {
	Eligible   bool
	HourlyRate decimal.Decimal
	Multiplier decimal.Decimal
	Amount     decimal.Decimal
}

// Breakdown aggregates the statutory deductions for one monthly salary.
// Supported is false when the jurisdiction has no rate tables here; all
// amounts are zero in that case.
type Breakdown struct {
	Supported       bool
	Jurisdiction    string
	Gross           decimal.Decimal
	Retirement      Contribution
	SocialInsurance Contribution
	Net             decimal.Decimal
}
