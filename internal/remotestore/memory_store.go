// Package remotestore は保存済みデザインのリモートストア実装を提供する。
//
// HTTPStoreはstorefront APIのクライアント、MongoStoreはMongoDBのユーザー単位の
// ドキュメント名前空間、MemoryStoreはプロセス内の実装（テストとオフライン動作用）。
package remotestore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/savedsync"
)

// MemoryStore はプロセス内で保存済みデザインを保持するストア。
// SetFailureで以降の呼び出しを失敗させられる。
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]model.SavedEntry
	failure error
	calls   int
	now     func() time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]model.SavedEntry),
		now:     time.Now,
	}
}

// SetFailure は以降の全呼び出しが返すエラーを設定する。nilで解除する。
func (m *MemoryStore) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Calls はこれまでのリモート呼び出し回数を返す。
func (m *MemoryStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ListAll はユーザーの保存済みデザインを全件返す。
func (m *MemoryStore) ListAll(ctx context.Context, userID string) ([]model.SavedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failure != nil {
		return nil, m.failure
	}

	out := make([]model.SavedEntry, len(m.records[userID]))
	copy(out, m.records[userID])
	return out, nil
}

// FindByProductID はproductIdで保存済みデザインを検索する。見つからない場合はnilを返す。
func (m *MemoryStore) FindByProductID(ctx context.Context, userID, productID string) (*model.SavedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failure != nil {
		return nil, m.failure
	}

	for _, e := range m.records[userID] {
		if e.ProductID == productID {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

// Create は保存済みデザインを作成する。重複チェックは行わない。
func (m *MemoryStore) Create(ctx context.Context, userID string, item model.CatalogItem) (*model.SavedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failure != nil {
		return nil, m.failure
	}

	e := model.SavedEntry{
		ID:        uuid.New().String(),
		ProductID: item.ProductID,
		Item:      item,
		SavedAt:   m.now().UTC(),
	}
	m.records[userID] = append(m.records[userID], e)
	return &e, nil
}

// DeleteByID は保存済みデザインを削除する。存在しない場合も成功とする。
func (m *MemoryStore) DeleteByID(ctx context.Context, userID, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failure != nil {
		return m.failure
	}

	entries := m.records[userID]
	for i, e := range entries {
		if e.ID == entryID {
			m.records[userID] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

// compile-time interface check
var _ savedsync.RemoteStore = (*MemoryStore)(nil)
