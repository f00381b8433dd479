package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMYTerms() OfferTerms {
	return OfferTerms{
		Jurisdiction:    "MY",
		MonthlySalary:   decimal.NewFromInt(5000),
		ProbationMonths: 3,
		NoticeWeeks:     4,
		AnnualLeaveDays: 10,
	}
}

func TestCheck_ValidTerms(t *testing.T) {
	c := NewChecker()

	res := c.Check(validMYTerms())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Reasons)

	res = c.Check(OfferTerms{
		Jurisdiction:    "SG",
		MonthlySalary:   decimal.NewFromInt(4000),
		ProbationMonths: 6,
		NoticeWeeks:     1,
		AnnualLeaveDays: 7,
	})
	assert.True(t, res.Valid)
}

func TestCheck_UnknownJurisdictionFailsClosed(t *testing.T) {
	terms := validMYTerms()
	terms.Jurisdiction = "US"

	res := NewChecker().Check(terms)
	assert.False(t, res.Valid)
	require.Len(t, res.Reasons, 1)
	assert.Contains(t, res.Reasons[0], "US")
}

func TestCheck_ProbationTooLong(t *testing.T) {
	terms := validMYTerms()
	terms.ProbationMonths = 7

	res := NewChecker().Check(terms)
	assert.False(t, res.Valid)
	require.Len(t, res.Reasons, 1)
	assert.Contains(t, res.Reasons[0], "probation")
}

func TestCheck_BelowMinimumWage(t *testing.T) {
	terms := validMYTerms()
	terms.MonthlySalary = decimal.NewFromInt(1200)

	res := NewChecker().Check(terms)
	assert.False(t, res.Valid)
	require.Len(t, res.Reasons, 1)
	assert.Contains(t, res.Reasons[0], "minimum wage")
}

func TestCheck_OneReasonPerViolation(t *testing.T) {
	res := NewChecker().Check(OfferTerms{
		Jurisdiction:    "MY",
		MonthlySalary:   decimal.NewFromInt(1000),
		ProbationMonths: 9,
		NoticeWeeks:     1,
		AnnualLeaveDays: 2,
	})
	assert.False(t, res.Valid)
	assert.Len(t, res.Reasons, 4)
}

func TestCheck_NoticeAndLeaveFloors(t *testing.T) {
	terms := validMYTerms()
	terms.NoticeWeeks = 3
	terms.AnnualLeaveDays = 7

	res := NewChecker().Check(terms)
	assert.False(t, res.Valid)
	assert.Len(t, res.Reasons, 2)
}
