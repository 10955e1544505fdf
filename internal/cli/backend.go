package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/remotestore"
	"github.com/hitoshi/storefront/internal/savedsync"
)

// Backend はCLIが操作する保存先。保存済みデザインのストアとカタログの参照を兼ねる。
type Backend interface {
	savedsync.RemoteStore
	ListDesigns(ctx context.Context) ([]model.CatalogItem, error)
}

// Options はバックエンドの接続設定。
type Options struct {
	BaseURL string
	Token   string
	Offline bool
	Timeout time.Duration
	Logger  *slog.Logger
}

// Opener はOptionsからBackendを開く関数。テストで差し替える。
type Opener func(opts Options) (Backend, error)

// OpenBackend は既定のOpener。
// Offlineの場合は初期データのカタログを持つプロセス内ストアを返す。
func OpenBackend(opts Options) (Backend, error) {
	if opts.Offline {
		return NewOfflineBackend(), nil
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("STOREFRONT_TOKEN or --token is required (issue one with: storefront session <email>)")
	}
	client := &http.Client{Timeout: opts.Timeout}
	store, err := remotestore.NewHTTPStore(opts.BaseURL, opts.Token, client, opts.Logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// OfflineBackend はMemoryStoreと初期データのカタログを組み合わせたBackend。
type OfflineBackend struct {
	*remotestore.MemoryStore

	once    sync.Once
	designs []model.CatalogItem
}

// NewOfflineBackend はOfflineBackendを生成する。
func NewOfflineBackend() *OfflineBackend {
	return &OfflineBackend{MemoryStore: remotestore.NewMemoryStore()}
}

// ListDesigns は初期データのデザインを返す。
func (b *OfflineBackend) ListDesigns(ctx context.Context) ([]model.CatalogItem, error) {
	b.once.Do(func() {
		for _, d := range catalog.SeedDesigns(time.Now()) {
			b.designs = append(b.designs, d.CatalogItem())
		}
	})
	out := make([]model.CatalogItem, len(b.designs))
	copy(out, b.designs)
	return out, nil
}
