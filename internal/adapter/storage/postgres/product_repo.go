package postgres

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const productColumns = `id, seller_id, name, description, category, brand, tags, price, stock, status, images, created_at, updated_at`

// ProductRepo implements ports.ProductRepository.
type ProductRepo struct {
	pool Pool
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// Create inserts a product within a database transaction.
func (r *ProductRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	query := `INSERT INTO products (id, seller_id, name, description, category, brand, tags, price, stock, status, images, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.SellerID, p.Name, p.Description, p.Category, p.Brand, nonNil(p.Tags),
		p.Price, p.Stock, p.Status, nonNil(p.Images), p.Embedding, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID fetches a product outside any transaction.
func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.get(ctx, r.pool, id)
}

// GetByIDTx fetches a product inside tx, seeing the transaction's own writes.
func (r *ProductRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Product, error) {
	return r.get(ctx, tx, id)
}

func (r *ProductRepo) get(ctx context.Context, q Querier, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p := &domain.Product{}
	err := q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Category, &p.Brand, &p.Tags,
		&p.Price, &p.Stock, &p.Status, &p.Images, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// TryDecrementStock is a single conditional UPDATE. The row lock it takes
// serializes concurrent decrements of the same product, and the WHERE clause
// is re-evaluated against the latest committed row.
func (r *ProductRepo) TryDecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (*domain.StockReservation, bool, error) {
	query := `UPDATE products
		SET stock = stock - $2,
			status = CASE WHEN stock - $2 = 0 THEN 'OUT_OF_STOCK' ELSE status END,
			updated_at = NOW()
		WHERE id = $1 AND stock >= $2 AND status = 'ACTIVE'
		RETURNING name, images[1], price, seller_id, stock`

	res := &domain.StockReservation{ProductID: productID}
	var image *string
	err := tx.QueryRow(ctx, query, productID, qty).Scan(
		&res.Name, &image, &res.Price, &res.SellerID, &res.RemainingStock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("decrement stock: %w", err)
	}
	if image != nil {
		res.Image = *image
	}
	return res, true, nil
}

// UpdatePrice changes the catalog price. Orders keep their snapshot.
func (r *ProductRepo) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET price = $1, updated_at = NOW() WHERE id = $2`, price, id)
	if err != nil {
		return fmt.Errorf("update product price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", id)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
