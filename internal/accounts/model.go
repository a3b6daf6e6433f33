package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the running balance of a single client, derived from the bills
// that are not yet fully paid. It is a cache of bill state, never the other
// way around, except through the explicit remaining-balance reconciliation.
type Account struct {
	ID             int64           `json:"id"`
	ClientID       int64           `json:"client_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// AccountWithClient enriches an account with contact details for listings.
type AccountWithClient struct {
	Account
	ClientName    string `json:"client_username"`
	ClientEmail   string `json:"client_email"`
	ClientPhone   string `json:"client_phone_number"`
	ClientAddress string `json:"client_address"`
}
