// Package seed loads catalog fixtures from CSV.
//
// The file has a header row followed by rows of
// title,price,currency,inventory_count,can_purchase where can_purchase is 0 or 1.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// ParseProducts reads every product row from r.
func ParseProducts(r io.Reader) ([]entity.Product, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var out []entity.Product
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}
}

func parseRow(row []string) (entity.Product, error) {
	price, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
	if err != nil {
		return entity.Product{}, fmt.Errorf("price: %w", err)
	}
	cur, err := entity.ParseCurrency(row[2])
	if err != nil {
		return entity.Product{}, err
	}
	inv, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return entity.Product{}, fmt.Errorf("inventory_count: %w", err)
	}
	flag, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil {
		return entity.Product{}, fmt.Errorf("can_purchase: %w", err)
	}
	return entity.Product{
		Title:          row[0],
		Price:          price,
		Currency:       cur,
		InventoryCount: inv,
		CanPurchase:    flag != 0,
	}, nil
}

// Load creates every product in one transaction; a bad row loads nothing.
func Load(ctx context.Context, tx usecase.TxManager, catalog *usecase.Catalog, products []entity.Product) ([]entity.Product, error) {
	created := make([]entity.Product, 0, len(products))
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		for i, p := range products {
			got, err := catalog.CreateProduct(ctx, p)
			if err != nil {
				return fmt.Errorf("product %d (%s): %w", i+1, p.Title, err)
			}
			created = append(created, got)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
