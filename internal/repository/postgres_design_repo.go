package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/lib/pq"
)

// PostgresDesignRepo はPostgreSQLを使用したデザインリポジトリ。
type PostgresDesignRepo struct {
	db *sql.DB
}

// NewPostgresDesignRepo はPostgresDesignRepoを生成する。
func NewPostgresDesignRepo(db *sql.DB) *PostgresDesignRepo {
	return &PostgresDesignRepo{db: db}
}

const designColumns = `id, name, author, created, categories, image, description, price, price_amount, sku, tags, active`

// ListActive は公開中のデザインをcreated降順で返す。
func (r *PostgresDesignRepo) ListActive(ctx context.Context) ([]*model.Design, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+designColumns+`
		 FROM designs
		 WHERE active = true
		 ORDER BY created DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list designs: %w", err)
	}
	defer rows.Close()

	var designs []*model.Design
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan design: %w", err)
		}
		designs = append(designs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate designs: %w", err)
	}

	return designs, nil
}

// FindByID は指定IDのデザインを取得する。見つからない場合はnilを返す。
func (r *PostgresDesignRepo) FindByID(ctx context.Context, id string) (*model.Design, error) {
	d, err := scanDesign(r.db.QueryRowContext(ctx,
		`SELECT `+designColumns+` FROM designs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find design: %w", err)
	}
	return d, nil
}

// Create はデザインを作成する。
func (r *PostgresDesignRepo) Create(ctx context.Context, design *model.Design) error {
	if _, err := r.db.ExecContext(ctx, insertDesignSQL, designArgs(design)...); err != nil {
		return fmt.Errorf("failed to insert design: %w", err)
	}
	return nil
}

// CreateIfAbsent は同じIDが存在しない場合のみデザインを作成する。
func (r *PostgresDesignRepo) CreateIfAbsent(ctx context.Context, design *model.Design) (bool, error) {
	result, err := r.db.ExecContext(ctx, insertDesignSQL+` ON CONFLICT (id) DO NOTHING`, designArgs(design)...)
	if err != nil {
		return false, fmt.Errorf("failed to insert design: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

const insertDesignSQL = `INSERT INTO designs (` + designColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func designArgs(d *model.Design) []any {
	var priceAmount sql.NullFloat64
	if d.PriceAmount != nil {
		priceAmount = sql.NullFloat64{Float64: *d.PriceAmount, Valid: true}
	}
	var sku sql.NullString
	if d.SKU != nil {
		sku = sql.NullString{String: *d.SKU, Valid: true}
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		d.ID, d.Name, d.Author, d.Created,
		pq.Array(categoriesToStrings(d.Categories)),
		d.Image, d.Description, d.Price, priceAmount, sku,
		pq.Array(tags), d.Active,
	}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDesign(row rowScanner) (*model.Design, error) {
	var (
		d           model.Design
		categories  []string
		tags        []string
		priceAmount sql.NullFloat64
		sku         sql.NullString
	)
	err := row.Scan(&d.ID, &d.Name, &d.Author, &d.Created,
		pq.Array(&categories), &d.Image, &d.Description, &d.Price,
		&priceAmount, &sku, pq.Array(&tags), &d.Active)
	if err != nil {
		return nil, err
	}

	d.Categories = stringsToCategories(categories)
	d.Tags = tags
	if priceAmount.Valid {
		v := priceAmount.Float64
		d.PriceAmount = &v
	}
	if sku.Valid {
		v := sku.String
		d.SKU = &v
	}
	return &d, nil
}

func categoriesToStrings(categories []model.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func stringsToCategories(values []string) []model.Category {
	out := make([]model.Category, 0, len(values))
	for _, v := range values {
		out = append(out, model.Category(v))
	}
	return out
}

// compile-time interface check
var _ DesignRepository = (*PostgresDesignRepo)(nil)
