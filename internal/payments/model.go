package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoir/comptoir/internal/billing"
)

// Method is how the money arrived. Free-form methods are rejected at the
// boundary so reports can group on it.
type Method string

const (
	MethodCash     Method = "cash"
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
	MethodCheck    Method = "check"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodCheck:
		return true
	}
	return false
}

// Payment is one ledger entry against a bill. The bill's total_paid is kept
// in sync when entries are created, amended or removed.
type Payment struct {
	ID          int64           `json:"id"`
	BillID      int64           `json:"bill_id"`
	AdminID     int64           `json:"admin_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      Method          `json:"method"`
	Note        *string         `json:"note,omitempty"`
	PaymentDate time.Time       `json:"payment_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// BillHistory is the full payment trail of one bill. Drift is the difference
// between the bill's recorded total_paid and the sum of its ledger entries;
// it is reported, never silently corrected.
type BillHistory struct {
	Bill          billing.Bill    `json:"bill"`
	Payments      []Payment       `json:"payments"`
	PaymentsTotal decimal.Decimal `json:"payments_total"`
	Drift         decimal.Decimal `json:"drift"`
}
