package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/stock"
)

type memoryRepo struct {
	products map[int64]*Product
	alerts   map[int64]*stock.Alert
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[int64]*Product),
		alerts:   make(map[int64]*stock.Alert),
	}
}

func (r *memoryRepo) snapshot() (map[int64]*Product, map[int64]*stock.Alert) {
	products := make(map[int64]*Product, len(r.products))
	for id, p := range r.products {
		copied := *p
		products[id] = &copied
	}
	alerts := make(map[int64]*stock.Alert, len(r.alerts))
	for id, a := range r.alerts {
		copied := *a
		alerts[id] = &copied
	}
	return products, alerts
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	products, alerts := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.products, r.alerts = products, alerts
		return err
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, httpx.ErrNotFound
	}
	return *p, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	return r.Get(ctx, id)
}

func (r *memoryRepo) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	for _, p := range r.products {
		if p.Barcode != nil && *p.Barcode == barcode {
			return *p, nil
		}
	}
	return Product{}, httpx.ErrNotFound
}

func (r *memoryRepo) BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error) {
	for _, p := range r.products {
		if p.ID != excludeID && p.Barcode != nil && *p.Barcode == barcode {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	r.nextID++
	product.ID = r.nextID
	product.CreatedAt = time.Now()
	stored := product
	r.products[product.ID] = &stored
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, product Product) error {
	if _, ok := r.products[product.ID]; !ok {
		return httpx.ErrNotFound
	}
	stored := product
	r.products[product.ID] = &stored
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

type memoryAlertStore memoryRepo

func (r *memoryRepo) Alerts() stock.Store {
	return (*memoryAlertStore)(r)
}

func (s *memoryAlertStore) UnresolvedAlert(ctx context.Context, productID int64) (*stock.Alert, error) {
	for _, a := range s.alerts {
		if a.ProductID == productID && !a.IsResolved {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryAlertStore) ResolveAlert(ctx context.Context, alertID int64, at time.Time) error {
	a, ok := s.alerts[alertID]
	if !ok {
		return httpx.ErrNotFound
	}
	a.IsResolved = true
	a.ResolvedAt = &at
	return nil
}

func (s *memoryAlertStore) InsertAlert(ctx context.Context, alert stock.Alert) (stock.Alert, error) {
	s.nextID++
	alert.ID = s.nextID
	alert.CreatedAt = time.Now()
	stored := alert
	s.alerts[alert.ID] = &stored
	return alert, nil
}

func (r *memoryRepo) openAlert(productID int64) *stock.Alert {
	for _, a := range r.alerts {
		if a.ProductID == productID && !a.IsResolved {
			return a
		}
	}
	return nil
}

type recordingNotifier struct {
	alerts []stock.Alert
}

func (n *recordingNotifier) StockAlertRaised(ctx context.Context, alert stock.Alert) {
	n.alerts = append(n.alerts, alert)
}

func createReq(qty, minimum int) CreateProductRequest {
	return CreateProductRequest{
		Name:              "Olive Oil 1L",
		Price:             decimal.RequireFromString("8.50"),
		QuantityInStock:   qty,
		MinimumStockLevel: minimum,
		CategoryID:        1,
	}
}

func TestCreateBelowMinimumRaisesAlert(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	service := NewService(repo, notifier)

	product, err := service.Create(context.Background(), 1, createReq(5, 10))
	require.NoError(t, err)
	require.True(t, product.IsActive)

	open := repo.openAlert(product.ID)
	require.NotNil(t, open)
	require.Equal(t, stock.AlertLowStock, open.AlertType)

	require.Len(t, notifier.alerts, 1)
	require.Equal(t, stock.AlertLowStock, notifier.alerts[0].AlertType)
}

func TestSetStockEscalatesAndRecovers(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	service := NewService(repo, notifier)
	ctx := context.Background()

	product, err := service.Create(ctx, 1, createReq(5, 10))
	require.NoError(t, err)

	// Zero stock closes the low_stock alert and opens out_of_stock.
	_, err = service.SetStock(ctx, product.ID, 0)
	require.NoError(t, err)
	open := repo.openAlert(product.ID)
	require.NotNil(t, open)
	require.Equal(t, stock.AlertOutOfStock, open.AlertType)

	unresolved := 0
	for _, a := range repo.alerts {
		if a.ProductID == product.ID && !a.IsResolved {
			unresolved++
		}
	}
	require.Equal(t, 1, unresolved)
	require.Len(t, notifier.alerts, 2)

	// Restocking resolves the alert without raising a new one.
	recovered, err := service.SetStock(ctx, product.ID, 20)
	require.NoError(t, err)
	require.Equal(t, 20, recovered.QuantityInStock)
	require.Nil(t, repo.openAlert(product.ID))
	require.Len(t, notifier.alerts, 2)
}

func TestSetStockNegativeRejected(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, &recordingNotifier{})

	product, err := service.Create(context.Background(), 1, createReq(10, 0))
	require.NoError(t, err)

	_, err = service.SetStock(context.Background(), product.ID, -1)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateMinimumTriggersAlert(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	service := NewService(repo, notifier)
	ctx := context.Background()

	product, err := service.Create(ctx, 1, createReq(8, 5))
	require.NoError(t, err)
	require.Nil(t, repo.openAlert(product.ID))

	// Raising the threshold above the quantity on hand flags the product.
	minimum := 10
	updated, err := service.Update(ctx, product.ID, UpdateProductRequest{MinimumStockLevel: &minimum})
	require.NoError(t, err)
	require.Equal(t, 10, updated.MinimumStockLevel)

	open := repo.openAlert(product.ID)
	require.NotNil(t, open)
	require.Equal(t, stock.AlertLowStock, open.AlertType)
	require.Len(t, notifier.alerts, 1)
}

func TestCreateDuplicateBarcodeRejected(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, &recordingNotifier{})
	ctx := context.Background()

	barcode := "4006381333931"
	first := createReq(10, 0)
	first.Barcode = &barcode
	_, err := service.Create(ctx, 1, first)
	require.NoError(t, err)

	second := createReq(10, 0)
	second.Barcode = &barcode
	_, err = service.Create(ctx, 1, second)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}
