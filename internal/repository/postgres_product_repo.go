package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/storefront/internal/model"
)

const productColumns = `id, name, description, stock, category, price, image, owner_id, created_at, updated_at`

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var image sql.NullString
	err := s.Scan(
		&p.ID, &p.Name, &p.Description, &p.Stock, &p.Category,
		&p.Price, &image, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Image = nullStringValue(image)
	return p, nil
}

// List は検索条件をすべて満たす商品を返す。
func (r *PostgresProductRepo) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	where, args := buildProductFilter(filter)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products`+where+` ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return p, nil
}

// Create は商品を作成する。
func (r *PostgresProductRepo) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, stock, category, price, image, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		product.ID, product.Name, product.Description, product.Stock, product.Category,
		product.Price, nullString(product.Image), product.OwnerID, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Update は商品の可変項目を更新し、更新後の商品を返す。owner_idは更新しない。
// 対象が存在しない場合はnilを返す。
func (r *PostgresProductRepo) Update(ctx context.Context, product *model.Product) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`UPDATE products
		 SET name = $2, description = $3, stock = $4, category = $5, price = $6, image = $7, updated_at = $8
		 WHERE id = $1
		 RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Stock, product.Category,
		product.Price, nullString(product.Image), product.UpdatedAt,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// Delete は指定IDの商品を削除し、削除した商品を返す。
// 対象が存在しない場合はnilを返す。
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`DELETE FROM products WHERE id = $1 RETURNING `+productColumns,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return p, nil
}

// buildProductFilter は検索条件からWHERE句とバインド引数を組み立てる。
// 条件はすべてAND結合する。条件が無い場合は空文字列を返す。
func buildProductFilter(f model.ProductFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if f.Name != "" {
		add(`name ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(f.Name))
	}
	if f.Category != "" {
		add(`category ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(f.Category))
	}
	if f.Stock != nil {
		add(`stock = $%d`, *f.Stock)
	}
	if f.MinPrice != nil {
		add(`price >= $%d`, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add(`price <= $%d`, *f.MaxPrice)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike はLIKEパターンの特殊文字をエスケープし、部分一致を文字通りに扱う。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
