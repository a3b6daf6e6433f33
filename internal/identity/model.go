// Package identity exposes the minimal admin/client read surface the core
// operations depend on. Profile management, OTP and asset upload live in
// separate services and are not part of this API.
package identity

import "time"

// Admin is a back-office operator.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Client is a retail customer with an authenticated storefront account.
type Client struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Address      *string   `json:"address,omitempty"`
	City         *string   `json:"city,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
