package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormatLoanID renders a loan sequence number as L00042.
func FormatLoanID(n int64) string { return fmt.Sprintf("L%05d", n) }

// FormatEndorsementID renders an endorsement sequence number as PE00007.
func FormatEndorsementID(n int64) string { return fmt.Sprintf("PE%05d", n) }

// PeriodRef builds the reference of the seq-th period of a loan.
func PeriodRef(loanID string, seq int) string { return fmt.Sprintf("%s-C%d", loanID, seq) }

// NewPaymentRef builds a payment reference unique even for repeat payments
// against the same period within one millisecond.
func NewPaymentRef(periodRef string, at time.Time) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-P-%d-%s", periodRef, at.UnixMilli(), nonce)
}
