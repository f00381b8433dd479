package policy

import "github.com/shopspring/decimal"

// limits captures the statutory employment-law floors and ceilings for one
// jurisdiction. A zero MinMonthlySalary means no statutory wage floor.
type limits struct {
	MaxProbationMonths int
	MinNoticeWeeks     int
	MinAnnualLeaveDays int
	MinMonthlySalary   decimal.Decimal
}

var jurisdictionLimits = map[string]limits{
	"MY": {
		MaxProbationMonths: 6,
		MinNoticeWeeks:     4,
		MinAnnualLeaveDays: 8,
		MinMonthlySalary:   decimal.NewFromInt(1500),
	},
	"SG": {
		MaxProbationMonths: 6,
		MinNoticeWeeks:     1,
		MinAnnualLeaveDays: 7,
	},
}

// SupportedJurisdictions lists jurisdictions with rule tables, for callers
// that validate input before building an offer.
func SupportedJurisdictions() []string {
	return []string{"MY", "SG"}
}
