package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertCatalogProducts writes referential rows in a single transaction.
// Existing operations are matched by code and updated in place. Returns the
// number of rows written.
func UpsertCatalogProducts(ctx context.Context, products []CatalogProduct) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	pool := Pool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	now := time.Now()

	for _, product := range products {
		kwhJSON, err := json.Marshal(product.KwhCumac)
		if err != nil {
			return 0, fmt.Errorf("failed to encode kwh table for %s: %w", product.Code, err)
		}
		batch.Queue(`
			INSERT INTO catalog_products (
				id, code, label, kwh_cumac, multiplier_key, multiplier_label,
				multiplier_coefficient, bonification, active, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			ON CONFLICT (code) DO UPDATE SET
				label = EXCLUDED.label,
				kwh_cumac = EXCLUDED.kwh_cumac,
				multiplier_key = EXCLUDED.multiplier_key,
				multiplier_label = EXCLUDED.multiplier_label,
				multiplier_coefficient = EXCLUDED.multiplier_coefficient,
				bonification = EXCLUDED.bonification,
				active = EXCLUDED.active,
				updated_at = EXCLUDED.updated_at
		`, uuid.New().String(), product.Code, product.Label, string(kwhJSON),
			product.MultiplierKey, product.MultiplierLabel,
			product.MultiplierCoefficient, product.Bonification, product.Active, now)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < len(products); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to upsert catalog product %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(products), nil
}

const catalogProductColumns = `id, code, label, kwh_cumac, multiplier_key, multiplier_label,
	multiplier_coefficient, bonification, active, created_at, updated_at`

func scanCatalogProduct(row pgx.Row) (*CatalogProduct, error) {
	var product CatalogProduct
	var kwhJSON []byte
	err := row.Scan(
		&product.ID, &product.Code, &product.Label, &kwhJSON,
		&product.MultiplierKey, &product.MultiplierLabel,
		&product.MultiplierCoefficient, &product.Bonification,
		&product.Active, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(kwhJSON) > 0 {
		if err := json.Unmarshal(kwhJSON, &product.KwhCumac); err != nil {
			return nil, fmt.Errorf("corrupt kwh table for %s: %w", product.Code, err)
		}
	}
	return &product, nil
}

// GetCatalogProductByCode returns the referential entry for an operation
// code, or nil when the code is unknown.
func GetCatalogProductByCode(ctx context.Context, code string) (*CatalogProduct, error) {
	pool := Pool()

	query := `SELECT ` + catalogProductColumns + ` FROM catalog_products WHERE code = $1`
	product, err := scanCatalogProduct(pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying catalog product: %w", err)
	}
	return product, nil
}

// CountCatalogProducts returns the number of referential entries matching
// the filter, for pagination.
func CountCatalogProducts(ctx context.Context, codeFilter string, activeOnly bool) (int, error) {
	pool := Pool()

	query := `SELECT COUNT(*) FROM catalog_products WHERE ($1 = '' OR code ILIKE '%' || $1 || '%') AND (NOT $2 OR active)`
	var count int
	if err := pool.QueryRow(ctx, query, codeFilter, activeOnly).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting catalog products: %w", err)
	}
	return count, nil
}

// ListCatalogProducts returns referential entries ordered by code.
func ListCatalogProducts(ctx context.Context, codeFilter string, activeOnly bool, limit, offset int) ([]CatalogProduct, error) {
	pool := Pool()

	query := `
		SELECT ` + catalogProductColumns + `
		FROM catalog_products
		WHERE ($1 = '' OR code ILIKE '%' || $1 || '%') AND (NOT $2 OR active)
		ORDER BY code
		LIMIT $3 OFFSET $4
	`
	rows, err := pool.Query(ctx, query, codeFilter, activeOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing catalog products: %w", err)
	}
	defer rows.Close()

	products := make([]CatalogProduct, 0)
	for rows.Next() {
		product, err := scanCatalogProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// UpsertDelegates writes delegate pricing rows, matched by name.
func UpsertDelegates(ctx context.Context, delegates []Delegate) (int, error) {
	if len(delegates) == 0 {
		return 0, nil
	}

	pool := Pool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	now := time.Now()

	for _, delegate := range delegates {
		batch.Queue(`
			INSERT INTO delegates (id, name, price_eur_per_mwh, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (name) DO UPDATE SET
				price_eur_per_mwh = EXCLUDED.price_eur_per_mwh,
				active = EXCLUDED.active,
				updated_at = EXCLUDED.updated_at
		`, uuid.New().String(), delegate.Name, delegate.PriceEurPerMwh, delegate.Active, now)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < len(delegates); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to upsert delegate %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(delegates), nil
}

// GetDelegateByName returns a delegate by exact name, or nil when unknown.
func GetDelegateByName(ctx context.Context, name string) (*Delegate, error) {
	pool := Pool()

	query := `
		SELECT id, name, price_eur_per_mwh, active, created_at, updated_at
		FROM delegates
		WHERE name = $1
	`
	var delegate Delegate
	err := pool.QueryRow(ctx, query, name).Scan(
		&delegate.ID, &delegate.Name, &delegate.PriceEurPerMwh,
		&delegate.Active, &delegate.CreatedAt, &delegate.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying delegate: %w", err)
	}
	return &delegate, nil
}

// ListDelegates returns delegates ordered by name.
func ListDelegates(ctx context.Context, activeOnly bool) ([]Delegate, error) {
	pool := Pool()

	query := `
		SELECT id, name, price_eur_per_mwh, active, created_at, updated_at
		FROM delegates
		WHERE NOT $1 OR active
		ORDER BY name
	`
	rows, err := pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("error listing delegates: %w", err)
	}
	defer rows.Close()

	delegates := make([]Delegate, 0)
	for rows.Next() {
		var delegate Delegate
		err := rows.Scan(
			&delegate.ID, &delegate.Name, &delegate.PriceEurPerMwh,
			&delegate.Active, &delegate.CreatedAt, &delegate.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		delegates = append(delegates, delegate)
	}
	return delegates, rows.Err()
}

// LoadReferential loads the full active referential in one round trip pair.
// The catalog cache calls this on refresh.
func LoadReferential(ctx context.Context) ([]CatalogProduct, []Delegate, error) {
	products, err := ListCatalogProducts(ctx, "", true, 100000, 0)
	if err != nil {
		return nil, nil, err
	}
	delegates, err := ListDelegates(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	return products, delegates, nil
}
