package valueobject

import (
	"fmt"
	"strings"
)

// PaymentMethod tags how a confirmed payment reached the ledger.
type PaymentMethod struct {
	value string
}

const (
	paymentMethodCash         = "CASH"
	paymentMethodGateway      = "GATEWAY"
	paymentMethodBankTransfer = "BANK_TRANSFER"
)

var (
	PaymentMethodCash         = PaymentMethod{value: paymentMethodCash}
	PaymentMethodGateway      = PaymentMethod{value: paymentMethodGateway}
	PaymentMethodBankTransfer = PaymentMethod{value: paymentMethodBankTransfer}
)

var validPaymentMethods = map[string]PaymentMethod{
	paymentMethodCash:         PaymentMethodCash,
	paymentMethodGateway:      PaymentMethodGateway,
	paymentMethodBankTransfer: PaymentMethodBankTransfer,
}

// NewPaymentMethod parses a method tag case-insensitively.
func NewPaymentMethod(s string) (PaymentMethod, error) {
	v, ok := validPaymentMethods[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return PaymentMethod{}, fmt.Errorf("invalid payment method: %q", s)
	}
	return v, nil
}

func (m PaymentMethod) String() string                 { return m.value }
func (m PaymentMethod) IsZero() bool                   { return m.value == "" }
func (m PaymentMethod) Equal(other PaymentMethod) bool { return m.value == other.value }
