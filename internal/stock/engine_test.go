package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	alerts map[int64]*Alert
	nextID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{alerts: make(map[int64]*Alert)}
}

func (s *memoryStore) UnresolvedAlert(ctx context.Context, productID int64) (*Alert, error) {
	for _, a := range s.alerts {
		if a.ProductID == productID && !a.IsResolved {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) ResolveAlert(ctx context.Context, alertID int64, at time.Time) error {
	a := s.alerts[alertID]
	a.IsResolved = true
	a.ResolvedAt = &at
	return nil
}

func (s *memoryStore) InsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	s.nextID++
	alert.ID = s.nextID
	alert.CreatedAt = time.Now()
	stored := alert
	s.alerts[alert.ID] = &stored
	return alert, nil
}

func (s *memoryStore) open(productID int64) *Alert {
	for _, a := range s.alerts {
		if a.ProductID == productID && !a.IsResolved {
			return a
		}
	}
	return nil
}

func state(qty, minimum int) ProductState {
	return ProductState{ID: 1, Name: "Olive Oil 1L", QuantityInStock: qty, MinimumStockLevel: minimum}
}

func TestReconcileRaisesLowStock(t *testing.T) {
	store := newMemoryStore()

	alert, err := Reconcile(context.Background(), store, state(5, 10))
	require.NoError(t, err)
	require.NotNil(t, alert)
	require.Equal(t, AlertLowStock, alert.AlertType)
	require.Contains(t, alert.Message, "low on stock")
}

func TestReconcileEscalatesToOutOfStock(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	first, err := Reconcile(ctx, store, state(5, 10))
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, AlertLowStock, first.AlertType)

	second, err := Reconcile(ctx, store, state(0, 10))
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, AlertOutOfStock, second.AlertType)

	// The low_stock alert was closed when severity changed.
	require.True(t, store.alerts[first.ID].IsResolved)
	open := store.open(1)
	require.NotNil(t, open)
	require.Equal(t, second.ID, open.ID)
}

func TestReconcileResolvesOnRecovery(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	raised, err := Reconcile(ctx, store, state(0, 10))
	require.NoError(t, err)
	require.NotNil(t, raised)

	recovered, err := Reconcile(ctx, store, state(20, 10))
	require.NoError(t, err)
	require.Nil(t, recovered)
	require.True(t, store.alerts[raised.ID].IsResolved)
	require.Nil(t, store.open(1))
}

func TestReconcileNoChurnOnSameSeverity(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	first, err := Reconcile(ctx, store, state(5, 10))
	require.NoError(t, err)
	require.NotNil(t, first)

	// Quantity moves but stays in the low band: no new alert.
	again, err := Reconcile(ctx, store, state(3, 10))
	require.NoError(t, err)
	require.Nil(t, again)
	require.Len(t, store.alerts, 1)
}

func TestReconcileZeroMinimumNeverLow(t *testing.T) {
	store := newMemoryStore()

	alert, err := Reconcile(context.Background(), store, state(1, 0))
	require.NoError(t, err)
	require.Nil(t, alert)

	// Reaching zero still raises out_of_stock.
	alert, err = Reconcile(context.Background(), store, state(0, 0))
	require.NoError(t, err)
	require.NotNil(t, alert)
	require.Equal(t, AlertOutOfStock, alert.AlertType)
}

func TestReconcileHealthyProductIsNoop(t *testing.T) {
	store := newMemoryStore()

	alert, err := Reconcile(context.Background(), store, state(50, 10))
	require.NoError(t, err)
	require.Nil(t, alert)
	require.Empty(t, store.alerts)
}
