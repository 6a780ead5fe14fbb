package service

import (
	"time"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
)

// splitLines partitions previewed invoice lines by billing period. Lines
// whose period end equals the subscription's current period end are
// proration adjustments for the already-paid-for period and are charged
// immediately on confirmation; every other line belongs to the next cycle.
// A line with no period end is counted toward the next period so a missing
// timestamp can never inflate the immediate charge.
func splitLines(lines []billingdomain.InvoiceLine, currentPeriodEnd time.Time) (immediate, next int64) {
	for _, line := range lines {
		if line.HasPeriodEnd() && line.PeriodEnd.Equal(currentPeriodEnd) {
			immediate += line.Amount
		} else {
			next += line.Amount
		}
	}
	return immediate, next
}

func sumLines(lines []billingdomain.InvoiceLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Amount
	}
	return total
}
