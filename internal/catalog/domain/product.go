package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("invalid product")

type Product struct {
	ID            int64           `json:"id,omitempty"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int64           `json:"stock_quantity"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required for %s", ErrInvalidProduct, p.SKU)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative for %s", ErrInvalidProduct, p.SKU)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock cannot be negative for %s", ErrInvalidProduct, p.SKU)
	}
	return nil
}
