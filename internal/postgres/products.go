package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

const productColumns = `id, seller_id, name, size, image_1, image_2, image_3, stock, quantity,
	price_cents, status, created_at, updated_at`

func scanProduct(row pgx.Row) (*shop.Product, error) {
	var p shop.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Size, &p.Image1, &p.Image2, &p.Image3,
		&p.Stock, &p.Quantity, &p.PriceCents, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) CreateProduct(ctx context.Context, p *shop.Product) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO products(id, seller_id, name, size, image_1, image_2, image_3, stock, quantity, price_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SellerID, p.Name, p.Size, p.Image1, p.Image2, p.Image3,
		p.Stock, p.Quantity, p.PriceCents, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return wrap("create product", err)
	}
	return nil
}

func (r *repo) GetProduct(ctx context.Context, id string) (*shop.Product, error) {
	p, err := scanProduct(r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &shop.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, wrap("get product", err)
	}
	return p, nil
}

func (r *repo) ListProducts(ctx context.Context, sellerID string) ([]shop.Product, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE $1 = '' OR seller_id = $1
		ORDER BY created_at, id`, sellerID)
	if err != nil {
		return nil, wrap("list products", err)
	}
	defer rows.Close()

	out := []shop.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap("scan product", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list products", err)
	}
	return out, nil
}

func (r *repo) UpdateProduct(ctx context.Context, p *shop.Product) error {
	ct, err := r.tx.Exec(ctx, `
		UPDATE products
		SET name=$2, size=$3, image_1=$4, image_2=$5, image_3=$6, quantity=$7, price_cents=$8, status=$9, updated_at=$10
		WHERE id=$1`,
		p.ID, p.Name, p.Size, p.Image1, p.Image2, p.Image3, p.Quantity, p.PriceCents, string(p.Status), p.UpdatedAt)
	if err != nil {
		return wrap("update product", err)
	}
	if ct.RowsAffected() == 0 {
		return &shop.ProductNotFoundError{ProductID: p.ID}
	}
	return nil
}

func (r *repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return wrap("delete product", err)
	}
	if ct.RowsAffected() == 0 {
		return &shop.ProductNotFoundError{ProductID: id}
	}
	return nil
}

// AdjustStock checks and changes stock in one statement, so two transactions
// can never both take the last units.
func (r *repo) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	var remaining int
	err := r.tx.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock`, productID, delta).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, wrap("adjust stock", err)
	}

	// nothing updated: either the product is gone or stock is short
	var stock int
	err = r.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &shop.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return 0, wrap("read stock", err)
	}
	return stock, &shop.InsufficientStockError{ProductID: productID, Available: stock, Requested: -delta}
}
