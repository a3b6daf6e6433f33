package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/comptoir/comptoir/internal/billing"
	"github.com/comptoir/comptoir/internal/identity"
	"github.com/comptoir/comptoir/internal/stock"
)

// Enqueuer hands a stored notification to the delivery queue.
type Enqueuer interface {
	EnqueueDelivery(ctx context.Context, notificationID int64) error
}

// Dispatcher turns domain events into per-recipient notification rows and
// queues their delivery. It is strictly best effort: the emitting operation
// has already committed, so failures here are logged and swallowed.
type Dispatcher struct {
	logger     *slog.Logger
	repo       Repository
	identities identity.Repository
	enqueue    Enqueuer
	printer    *message.Printer
}

func NewDispatcher(logger *slog.Logger, repo Repository, identities identity.Repository, enqueue Enqueuer) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		repo:       repo,
		identities: identities,
		enqueue:    enqueue,
		printer:    message.NewPrinter(language.English),
	}
}

// BillCreated notifies every admin about a freshly created bill.
func (d *Dispatcher) BillCreated(ctx context.Context, bill billing.Bill) {
	client, err := d.identities.GetClient(ctx, bill.ClientID)
	if err != nil {
		d.logger.Error("bill notification: load client",
			slog.Int64("bill_id", bill.ID), slog.Any("error", err))
		return
	}

	subject := fmt.Sprintf("New bill %s", bill.BillNumber)
	body := d.billMessage(bill, client.Username)

	admins, err := d.identities.ListAdmins(ctx)
	if err != nil {
		d.logger.Error("bill notification: list admins", slog.Any("error", err))
		return
	}
	for _, admin := range admins {
		adminID := admin.ID
		billID := bill.ID
		clientID := bill.ClientID
		d.store(ctx, Notification{
			AdminID:   &adminID,
			ClientID:  &clientID,
			BillID:    &billID,
			Type:      TypeBillCreated,
			Channel:   ChannelEmail,
			Recipient: admin.Email,
			Subject:   subject,
			Message:   body,
		})
	}
}

// StockAlertRaised notifies every admin that a product crossed a stock
// threshold.
func (d *Dispatcher) StockAlertRaised(ctx context.Context, alert stock.Alert) {
	admins, err := d.identities.ListAdmins(ctx)
	if err != nil {
		d.logger.Error("stock notification: list admins", slog.Any("error", err))
		return
	}

	subject := fmt.Sprintf("Stock alert (%s)", alert.AlertType)
	for _, admin := range admins {
		adminID := admin.ID
		alertID := alert.ID
		d.store(ctx, Notification{
			AdminID:      &adminID,
			StockAlertID: &alertID,
			Type:         TypeStockAlert,
			Channel:      ChannelEmail,
			Recipient:    admin.Email,
			Subject:      subject,
			Message:      alert.Message,
		})
	}
}

func (d *Dispatcher) store(ctx context.Context, n Notification) {
	id, err := d.repo.Insert(ctx, n)
	if err != nil {
		d.logger.Error("notification insert failed",
			slog.String("type", string(n.Type)),
			slog.String("recipient", n.Recipient),
			slog.Any("error", err))
		return
	}
	if d.enqueue == nil {
		return
	}
	if err := d.enqueue.EnqueueDelivery(ctx, id); err != nil {
		d.logger.Error("notification enqueue failed",
			slog.Int64("notification_id", id), slog.Any("error", err))
	}
}

func (d *Dispatcher) billMessage(bill billing.Bill, clientName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client %s placed bill %s.\n\nItems:\n", clientName, bill.BillNumber)
	for _, item := range bill.Items {
		fmt.Fprintf(&b, "  - %d x %s at %s\n", item.Quantity, item.ProductName, d.amount(item.UnitPrice))
	}
	fmt.Fprintf(&b, "\nTotal: %s", d.amount(bill.TotalAmount))
	return b.String()
}

func (d *Dispatcher) amount(v decimal.Decimal) string {
	return d.printer.Sprintf("%v",
		number.Decimal(v.InexactFloat64(),
			number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
