package testutil

import "time"

// Deterministic identifiers and instants shared by ledger tests.
var (
	TestBorrowerID  = "B-0001"
	TestBorrowerID2 = "B-0002"
	TestOperatorID  = "op-collector-1"
	TestReviewerID  = "op-reviewer-1"

	// TestDisbursedAt is mid-month so AddDate never normalises across month ends.
	TestDisbursedAt = time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)
)

// DaysAfter returns t shifted by n whole days.
func DaysAfter(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * 24 * time.Hour)
}
