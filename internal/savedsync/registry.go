package savedsync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Registry はユーザーセッションごとのSynchronizerを共有するための入れ物。
// 同じユーザーを表示する画面がそれぞれインスタンスを作ると楽観的状態が食い違うため、
// 画面はAcquireで同一インスタンスを受け取る。
// 一定時間使われなかったインスタンスは破棄され、Closeされる。
type Registry struct {
	store  RemoteStore
	logger *slog.Logger

	mu    sync.Mutex
	cache *cache.Cache
}

// NewRegistry はRegistryを生成する。idleTTLが0以下の場合は30分とする。
func NewRegistry(store RemoteStore, logger *slog.Logger, idleTTL time.Duration) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}

	c := cache.New(idleTTL, idleTTL/2)
	c.OnEvicted(func(userID string, v interface{}) {
		if s, ok := v.(*Synchronizer); ok {
			s.Close()
		}
		logger.Debug("synchronizer evicted", slog.String("user_id", userID))
	})

	return &Registry{
		store:  store,
		logger: logger,
		cache:  c,
	}
}

// Acquire はユーザーのSynchronizerを返す。存在しない場合は生成する。
// 取得するたびに有効期限を延長する。
func (r *Registry) Acquire(userID string) *Synchronizer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache.Get(userID); ok {
		s := v.(*Synchronizer)
		r.cache.Set(userID, s, cache.DefaultExpiration)
		return s
	}

	s := New(r.store, r.logger)
	r.cache.Set(userID, s, cache.DefaultExpiration)
	return s
}

// Release はユーザーのSynchronizerを破棄する。ログアウト時に呼ぶ。
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(userID)
}

// Len は保持しているSynchronizerの数を返す。
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

// Close は保持しているSynchronizerをすべて破棄する。
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID := range r.cache.Items() {
		r.cache.Delete(userID)
	}
}
