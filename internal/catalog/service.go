package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/stock"
)

// Notifier receives stock alert events raised by catalog mutations.
// Implementations are best-effort and must never fail the calling operation.
type Notifier interface {
	StockAlertRaised(ctx context.Context, alert stock.Alert)
}

// Service coordinates product operations. Every stock mutation runs the alert
// engine inside the same transaction.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService builds the catalog Service.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Create inserts a new product and reconciles its initial alert state: a
// product born below its minimum level raises an alert immediately.
func (s *Service) Create(ctx context.Context, adminID int64, req CreateProductRequest) (Product, error) {
	if !req.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", httpx.ErrValidation)
	}
	barcode, err := normalizeBarcode(req.Barcode)
	if err != nil {
		return Product{}, err
	}
	if err := validateVariant(req.Variants); err != nil {
		return Product{}, err
	}
	if barcode != nil {
		exists, err := s.repo.BarcodeExists(ctx, *barcode, 0)
		if err != nil {
			return Product{}, fmt.Errorf("catalog: check barcode: %w", err)
		}
		if exists {
			return Product{}, fmt.Errorf("%w: barcode %s is already assigned", httpx.ErrDuplicate, *barcode)
		}
	}

	product := Product{
		CategoryID:        req.CategoryID,
		AdminID:           adminID,
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		QuantityInStock:   req.QuantityInStock,
		MinimumStockLevel: req.MinimumStockLevel,
		ImageURLs:         req.ImageURLs,
		Barcode:           barcode,
		Variants:          req.Variants,
		IsActive:          true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if product.ImageURLs == nil {
		product.ImageURLs = []string{}
	}

	var alert *stock.Alert
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		created, err := repo.Create(ctx, product)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		product = created

		alert, err = stock.Reconcile(ctx, repo.Alerts(), product.StockState())
		return err
	})
	if err != nil {
		return Product{}, err
	}

	s.emitAlert(ctx, alert)
	return product, nil
}

// Update applies a partial update and re-runs alert reconciliation when the
// quantity or threshold moved.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	if req.Price != nil && !req.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", httpx.ErrValidation)
	}
	if err := validateVariant(req.Variants); err != nil {
		return Product{}, err
	}

	var product Product
	var alert *stock.Alert
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}

		if req.Name != nil {
			existing.Name = *req.Name
		}
		if req.Description != nil {
			existing.Description = req.Description
		}
		if req.Price != nil {
			existing.Price = *req.Price
		}
		if req.QuantityInStock != nil {
			existing.QuantityInStock = *req.QuantityInStock
		}
		if req.MinimumStockLevel != nil {
			existing.MinimumStockLevel = *req.MinimumStockLevel
		}
		if req.ImageURLs != nil {
			existing.ImageURLs = *req.ImageURLs
		}
		if req.CategoryID != nil {
			existing.CategoryID = *req.CategoryID
		}
		if req.IsActive != nil {
			existing.IsActive = *req.IsActive
		}
		if req.ClearVariants {
			existing.Variants = nil
		} else if req.Variants != nil {
			existing.Variants = req.Variants
		}
		if req.ClearBarcode {
			existing.Barcode = nil
		} else if req.Barcode != nil {
			barcode, err := normalizeBarcode(req.Barcode)
			if err != nil {
				return err
			}
			if barcode != nil {
				exists, err := repo.BarcodeExists(ctx, *barcode, id)
				if err != nil {
					return fmt.Errorf("check barcode: %w", err)
				}
				if exists {
					return fmt.Errorf("%w: barcode %s is already assigned", httpx.ErrDuplicate, *barcode)
				}
			}
			existing.Barcode = barcode
		}

		if err := repo.Update(ctx, existing); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		product = existing

		alert, err = stock.Reconcile(ctx, repo.Alerts(), existing.StockState())
		return err
	})
	if err != nil {
		return Product{}, err
	}

	s.emitAlert(ctx, alert)
	return product, nil
}

// SetStock replaces the quantity on hand with an absolute value.
func (s *Service) SetStock(ctx context.Context, id int64, quantity int) (Product, error) {
	if quantity < 0 {
		return Product{}, fmt.Errorf("%w: quantity cannot be negative", httpx.ErrValidation)
	}

	var product Product
	var alert *stock.Alert
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		existing.QuantityInStock = quantity
		if err := repo.Update(ctx, existing); err != nil {
			return fmt.Errorf("set stock: %w", err)
		}
		product = existing

		alert, err = stock.Reconcile(ctx, repo.Alerts(), existing.StockState())
		return err
	})
	if err != nil {
		return Product{}, err
	}

	s.emitAlert(ctx, alert)
	return product, nil
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// GetByBarcode fetches one product by its barcode.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	return s.repo.GetByBarcode(ctx, strings.TrimSpace(barcode))
}

// List returns products matching the filters with the total count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Delete removes a product. Stock alerts cascade with it; bill items keep
// their snapshot and lose only the product reference.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) emitAlert(ctx context.Context, alert *stock.Alert) {
	if alert == nil || s.notifier == nil {
		return
	}
	s.notifier.StockAlertRaised(ctx, *alert)
}

func normalizeBarcode(barcode *string) (*string, error) {
	if barcode == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*barcode)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) < 6 || len(trimmed) > 100 {
		return nil, fmt.Errorf("%w: barcode must be between 6 and 100 characters", httpx.ErrValidation)
	}
	return &trimmed, nil
}

func validateVariant(v *Variant) error {
	if v == nil {
		return nil
	}
	if strings.TrimSpace(v.Type) == "" {
		return fmt.Errorf("%w: variant type is required", httpx.ErrValidation)
	}
	if len(v.Options) == 0 {
		return fmt.Errorf("%w: variant needs at least one option", httpx.ErrValidation)
	}
	return nil
}
