package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/lib/pq"
)

// PostgresGarmentRepo はPostgreSQLを使用したベース衣料リポジトリ。
type PostgresGarmentRepo struct {
	db *sql.DB
}

// NewPostgresGarmentRepo はPostgresGarmentRepoを生成する。
func NewPostgresGarmentRepo(db *sql.DB) *PostgresGarmentRepo {
	return &PostgresGarmentRepo{db: db}
}

// ListActive は公開中のベース衣料をcreated_at降順で返す。
func (r *PostgresGarmentRepo) ListActive(ctx context.Context) ([]*model.Garment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, sizes, color, sku, author, release_year, categories,
		        image, description, price, active, created_at
		 FROM garments
		 WHERE active = true
		 ORDER BY created_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list garments: %w", err)
	}
	defer rows.Close()

	var garments []*model.Garment
	for rows.Next() {
		var (
			g          model.Garment
			categories []string
		)
		err := rows.Scan(&g.ID, &g.Name, pq.Array(&g.Sizes), &g.Color, &g.SKU, &g.Author,
			&g.ReleaseYear, pq.Array(&categories), &g.Image, &g.Description, &g.Price,
			&g.Active, &g.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garment: %w", err)
		}
		g.Categories = stringsToCategories(categories)
		garments = append(garments, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate garments: %w", err)
	}

	return garments, nil
}

// Create はベース衣料を作成する。
func (r *PostgresGarmentRepo) Create(ctx context.Context, garment *model.Garment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO garments (id, name, sizes, color, sku, author, release_year, categories,
		                       image, description, price, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		garment.ID, garment.Name, pq.Array(garment.Sizes), garment.Color, garment.SKU,
		garment.Author, garment.ReleaseYear, pq.Array(categoriesToStrings(garment.Categories)),
		garment.Image, garment.Description, garment.Price, garment.Active, garment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert garment: %w", err)
	}
	return nil
}

// compile-time interface check
var _ GarmentRepository = (*PostgresGarmentRepo)(nil)
