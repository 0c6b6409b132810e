package application

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmehra2102/orderplacement/internal/catalog/domain"
)

type ProductWriter interface {
	// Upsert inserts or updates by SKU and reports whether a row was created.
	Upsert(ctx context.Context, p domain.Product) (created bool, err error)
}

type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type Seeder struct {
	log  *slog.Logger
	repo ProductWriter
}

func NewSeeder(log *slog.Logger, repo ProductWriter) *Seeder {
	return &Seeder{log: log, repo: repo}
}

// SeedFromJSON reads a JSON array of products. All entries are validated
// before any write so a bad file changes nothing.
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (SeedResult, error) {
	var products []domain.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return SeedResult{}, fmt.Errorf("decode products: %w", err)
	}
	return s.Seed(ctx, products)
}

func (s *Seeder) Seed(ctx context.Context, products []domain.Product) (SeedResult, error) {
	for i, p := range products {
		if err := p.Validate(); err != nil {
			return SeedResult{}, fmt.Errorf("product %d: %w", i, err)
		}
	}

	var res SeedResult
	for _, p := range products {
		created, err := s.repo.Upsert(ctx, p)
		if err != nil {
			return res, fmt.Errorf("upsert %s: %w", p.SKU, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	s.log.Info("catalog seeded", "created", res.Created, "updated", res.Updated)
	return res, nil
}
