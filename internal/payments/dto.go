package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	BillID      int64           `json:"bill_id" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Method      Method          `json:"method" validate:"required"`
	Note        *string         `json:"note,omitempty" validate:"omitempty,max=500"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
}

type UpdatePaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Method      *Method          `json:"method,omitempty"`
	Note        *string          `json:"note,omitempty" validate:"omitempty,max=500"`
	PaymentDate *time.Time       `json:"payment_date,omitempty"`
}
