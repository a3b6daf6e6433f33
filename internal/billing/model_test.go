package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name      string
		paid      string
		remaining string
		want      Status
	}{
		{"nothing paid", "0", "100", StatusNotPaid},
		{"partially paid", "40", "60", StatusPartiallyPaid},
		{"fully paid", "100", "0", StatusPaid},
		{"zero-amount bill counts as paid", "0", "0", StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, StatusFor(d(tc.paid), d(tc.remaining)))
		})
	}
}

func TestSetTotalPaidDerivesRemainingAndStatus(t *testing.T) {
	bill := Bill{TotalAmount: d("200")}

	bill.SetTotalPaid(d("50"))
	require.True(t, bill.TotalRemaining.Equal(d("150")))
	require.Equal(t, StatusPartiallyPaid, bill.Status)

	bill.SetTotalPaid(d("200"))
	require.True(t, bill.TotalRemaining.IsZero())
	require.Equal(t, StatusPaid, bill.Status)

	bill.SetTotalPaid(decimal.Zero)
	require.True(t, bill.TotalRemaining.Equal(d("200")))
	require.Equal(t, StatusNotPaid, bill.Status)
}

func TestDeliveryTransitions(t *testing.T) {
	cases := []struct {
		from, to DeliveryStatus
		allowed  bool
	}{
		{DeliveryNotDelivered, DeliveryDelivered, true},
		{DeliveryNotDelivered, DeliveryCancelled, true},
		{DeliveryDelivered, DeliveryCancelled, true},
		{DeliveryDelivered, DeliveryNotDelivered, false},
		{DeliveryCancelled, DeliveryNotDelivered, false},
		{DeliveryCancelled, DeliveryDelivered, false},
		{DeliveryNotDelivered, DeliveryNotDelivered, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestIsOutside(t *testing.T) {
	regular := Bill{BillNumber: "BILL-20260828-0001"}
	outside := Bill{BillNumber: OutsideBillPrefix + "20260828-1A2B3C4D"}
	require.False(t, regular.IsOutside())
	require.True(t, outside.IsOutside())
}

func TestSnapshotNameInlinesVariants(t *testing.T) {
	require.Equal(t, "T-Shirt", snapshotName("T-Shirt", nil))
	require.Equal(t, "T-Shirt (size: M)", snapshotName("T-Shirt", map[string]string{"size": "M"}))
}
