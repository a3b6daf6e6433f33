package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// ean13Checksum computes the EAN-13 check digit for a 12-digit base.
func ean13Checksum(base string) int {
	sum := 0
	for i, r := range base {
		d := int(r - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return (10 - sum%10) % 10
}

// GenerateBarcode returns a fresh EAN-13 barcode not assigned to any product.
func (s *Service) GenerateBarcode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		base := make([]byte, 12)
		for i := range base {
			base[i] = byte('0' + rand.IntN(10))
		}
		code := fmt.Sprintf("%s%d", base, ean13Checksum(string(base)))

		exists, err := s.repo.BarcodeExists(ctx, code, 0)
		if err != nil {
			return "", fmt.Errorf("catalog: check barcode: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("catalog: could not generate a unique barcode")
}
