package notify

import "time"

type Type string

const (
	TypeBillCreated Type = "bill_created"
	TypeStockAlert  Type = "stock_alert"
)

type Channel string

const ChannelEmail Channel = "email"

// Notification is one queued message for one recipient. Rows are written by
// the dispatcher and flipped to sent by the delivery worker.
type Notification struct {
	ID           int64      `json:"id"`
	AdminID      *int64     `json:"admin_id,omitempty"`
	ClientID     *int64     `json:"client_id,omitempty"`
	BillID       *int64     `json:"bill_id,omitempty"`
	StockAlertID *int64     `json:"stock_alert_id,omitempty"`
	Type         Type       `json:"type"`
	Channel      Channel    `json:"channel"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	Message      string     `json:"message"`
	IsSent       bool       `json:"is_sent"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ListFilter narrows the notification listing.
type ListFilter struct {
	Type   *Type
	IsSent *bool
	Limit  int
	Offset int
}
