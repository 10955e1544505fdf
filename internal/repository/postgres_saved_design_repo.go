package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/savedsync"
)

// PostgresSavedDesignRepo はPostgreSQLを使用した保存済みデザインリポジトリ。
// 商品はjsonbのスナップショットとして保存時点の内容を保持する。
type PostgresSavedDesignRepo struct {
	db *sql.DB
}

// NewPostgresSavedDesignRepo はPostgresSavedDesignRepoを生成する。
func NewPostgresSavedDesignRepo(db *sql.DB) *PostgresSavedDesignRepo {
	return &PostgresSavedDesignRepo{db: db}
}

// ListAll はユーザーの保存済みデザインをsaved_at降順で返す。
// スナップショットが壊れている行は読み飛ばす。
func (r *PostgresSavedDesignRepo) ListAll(ctx context.Context, userID string) ([]model.SavedEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, product, saved_at
		 FROM saved_designs
		 WHERE user_id = $1
		 ORDER BY saved_at DESC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved designs: %w", err)
	}
	defer rows.Close()

	entries := make([]model.SavedEntry, 0)
	for rows.Next() {
		var (
			entry   model.SavedEntry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ProductID, &payload, &entry.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan saved design: %w", err)
		}
		if !decodeSnapshot(payload, &entry) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved designs: %w", err)
	}

	return entries, nil
}

// FindByProductID はproduct_idで保存済みデザインを1件検索する。見つからない場合はnilを返す。
// 重複がある場合は最も古い行を返す。
func (r *PostgresSavedDesignRepo) FindByProductID(ctx context.Context, userID, productID string) (*model.SavedEntry, error) {
	var (
		entry   model.SavedEntry
		payload []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, product_id, product, saved_at
		 FROM saved_designs
		 WHERE user_id = $1 AND product_id = $2
		 ORDER BY saved_at ASC, id ASC
		 LIMIT 1`,
		userID, productID,
	).Scan(&entry.ID, &entry.ProductID, &payload, &entry.SavedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find saved design: %w", err)
	}
	if !decodeSnapshot(payload, &entry) {
		return nil, nil
	}

	return &entry, nil
}

// Create は商品スナップショットを保存する。saved_atはDBのnow()で採番される。
func (r *PostgresSavedDesignRepo) Create(ctx context.Context, userID string, item model.CatalogItem) (*model.SavedEntry, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product snapshot: %w", err)
	}

	entry := &model.SavedEntry{
		ID:        uuid.New().String(),
		ProductID: item.ProductID,
		Item:      item,
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO saved_designs (id, user_id, product_id, product)
		 VALUES ($1, $2, $3, $4)
		 RETURNING saved_at`,
		entry.ID, userID, item.ProductID, payload,
	).Scan(&entry.SavedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert saved design: %w", err)
	}

	return entry, nil
}

// DeleteByID は保存済みデザインを削除する。
// UUIDとして不正なIDや存在しないIDは削除済みとみなす。
func (r *PostgresSavedDesignRepo) DeleteByID(ctx context.Context, userID, entryID string) error {
	if _, err := uuid.Parse(entryID); err != nil {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_designs WHERE id = $1 AND user_id = $2`,
		entryID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete saved design: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの保存済みデザインをすべて削除する。
func (r *PostgresSavedDesignRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saved_designs WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete saved designs of user: %w", err)
	}
	return nil
}

// decodeSnapshot はjsonbのスナップショットをentryに展開する。
// 商品IDか名前が欠けている場合はfalseを返す。
func decodeSnapshot(payload []byte, entry *model.SavedEntry) bool {
	var item model.CatalogItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return false
	}
	if item.ProductID == "" || item.Name == "" {
		return false
	}
	if entry.ProductID == "" {
		entry.ProductID = item.ProductID
	}
	entry.Item = item
	return true
}

// compile-time interface check
var (
	_ SavedDesignRepository = (*PostgresSavedDesignRepo)(nil)
	_ savedsync.RemoteStore = (*PostgresSavedDesignRepo)(nil)
)
