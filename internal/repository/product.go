package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/inventory-api/internal/model"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/db"
)

// ProductRepository persists products. Lookups report absence through a
// boolean instead of an error.
type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	ListAllProducts(ctx context.Context) ([]model.Product, error)
	GetProductByID(ctx context.Context, id int64) (model.Product, bool, error)
	CreateProduct(ctx context.Context, fields model.ProductFields) (model.Product, error)
	// UpdateProduct overwrites all mutable fields of an existing product.
	UpdateProduct(ctx context.Context, id int64, fields model.ProductFields) (model.Product, bool, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
	ProductExists(ctx context.Context, id int64) (bool, error)
}

const productColumns = `id, name, description, price, quantity, category, created_at, updated_at`

type productRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Price       pgtype.Numeric `db:"price"`
	Quantity    int32          `db:"quantity"`
	Category    string         `db:"category"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   *time.Time     `db:"updated_at"`
}

type productRepository struct {
	db  db.DB
	now func() time.Time
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{
		db:  db,
		now: time.Now,
	}
}

// NewProductRepositoryWithClock is NewProductRepository with a custom clock
// for timestamps.
func NewProductRepositoryWithClock(db db.DB, now func() time.Time) ProductRepository {
	return &productRepository{
		db:  db,
		now: now,
	}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{
		db:  db,
		now: r.now,
	}
}

func (r productRepository) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	productRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("collect products: %w", err)
	}

	products := make([]model.Product, 0, len(productRows))
	for _, row := range productRows {
		product, err := rowToModelProduct(row)
		if err != nil {
			return nil, fmt.Errorf("convert product %d: %w", row.ID, err)
		}
		products = append(products, product)
	}

	return products, nil
}

func (r productRepository) GetProductByID(ctx context.Context, id int64) (model.Product, bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	if err != nil {
		return model.Product{}, false, fmt.Errorf("query product: %w", err)
	}

	return collectOneProduct(rows)
}

func (r productRepository) CreateProduct(ctx context.Context, fields model.ProductFields) (model.Product, error) {
	args, err := productFieldsArgs(fields)
	if err != nil {
		return model.Product{}, err
	}
	args["created_at"] = r.now().UTC()

	rows, err := r.db.Query(ctx, `
		INSERT INTO products (name, description, price, quantity, category, created_at)
		VALUES (@name, @description, @price, @quantity, @category, @created_at)
		RETURNING `+productColumns,
		args,
	)
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}

	product, ok, err := collectOneProduct(rows)
	if err != nil {
		return model.Product{}, err
	}
	if !ok {
		return model.Product{}, errors.New("insert product: no row returned")
	}

	return product, nil
}

func (r productRepository) UpdateProduct(ctx context.Context, id int64, fields model.ProductFields) (model.Product, bool, error) {
	args, err := productFieldsArgs(fields)
	if err != nil {
		return model.Product{}, false, err
	}
	args["id"] = id
	args["updated_at"] = r.now().UTC()

	rows, err := r.db.Query(ctx, `
		UPDATE products
		SET
			name        = @name,
			description = @description,
			price       = @price,
			quantity    = @quantity,
			category    = @category,
			updated_at  = @updated_at
		WHERE id = @id
		RETURNING `+productColumns,
		args,
	)
	if err != nil {
		return model.Product{}, false, fmt.Errorf("update product: %w", err)
	}

	return collectOneProduct(rows)
}

func (r productRepository) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r productRepository) ProductExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("product exists: %w", err)
	}

	return exists, nil
}

func collectOneProduct(rows pgx.Rows) (model.Product, bool, error) {
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[productRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, fmt.Errorf("collect product: %w", err)
	}

	product, err := rowToModelProduct(row)
	if err != nil {
		return model.Product{}, false, fmt.Errorf("convert product %d: %w", row.ID, err)
	}

	return product, true, nil
}

func productFieldsArgs(fields model.ProductFields) (pgx.NamedArgs, error) {
	var price pgtype.Numeric
	if err := price.Scan(fields.Price.StringFixed(2)); err != nil {
		return nil, fmt.Errorf("scan price: %w", err)
	}

	if fields.Quantity > math.MaxInt32 || fields.Quantity < math.MinInt32 {
		return nil, fmt.Errorf("quantity out of range: %d", fields.Quantity)
	}

	return pgx.NamedArgs{
		"name":        fields.Name,
		"description": fields.Description,
		"price":       price,
		"quantity":    int32(fields.Quantity),
		"category":    fields.Category,
	}, nil
}

func rowToModelProduct(row productRow) (model.Product, error) {
	price, err := numericToDecimal(row.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("convert price: %w", err)
	}

	var updatedAt *time.Time
	if row.UpdatedAt != nil {
		t := row.UpdatedAt.UTC()
		updatedAt = &t
	}

	return model.Product{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Price:       price,
		Quantity:    int(row.Quantity),
		Category:    row.Category,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   updatedAt,
	}, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, errors.New("null numeric")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Decimal{}, errors.New("non-finite numeric")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}

	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
