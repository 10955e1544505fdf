// Package savedsync はユーザーの保存済みデザインをリモートストアと同期する。
//
// Synchronizerは手元の一覧を即座に更新し（楽観的更新）、リモートへの反映は後追いで行う。
// 削除がリモートで失敗した場合は保持しておいた写しを一覧に戻す。
// Loadによる全件取得が唯一の整合点で、溜まった楽観的なずれはそこで解消される。
package savedsync

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/storefront/internal/model"
)

// State はSynchronizerの観測用スナップショット。
// Entriesは呼び出し側で変更しないこと。
type State struct {
	Entries           []model.SavedEntry
	IsLoading         bool
	LastError         *SyncError
	PendingRemovalIDs []string
}

// IsRemoving は指定IDの削除がリモート反映待ちかを返す。
func (s State) IsRemoving(entryID string) bool {
	for _, id := range s.PendingRemovalIDs {
		if id == entryID {
			return true
		}
	}
	return false
}

// pendingRemoval は削除のロールバック用に保持する写し。
// loadGenは削除を適用した時点で完了済みだったLoadの回数。
type pendingRemoval struct {
	entry   model.SavedEntry
	loadGen uint64
}

// Synchronizer は1ユーザーセッション分の保存済みデザイン一覧を管理する。
// 同じセッションを表示する画面はすべて同一インスタンスを共有する（Registryを参照）。
type Synchronizer struct {
	store  RemoteStore
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	entries   []model.SavedEntry
	isLoading bool
	lastError *SyncError
	pending   map[string]*pendingRemoval

	// loadSeqは開始したLoadの通し番号、loadGenは反映済みのLoadの回数。
	loadSeq uint64
	loadGen uint64

	closed       bool
	observers    map[int]func(State)
	nextObserver int
}

// New はSynchronizerを生成する。loggerがnilの場合はslog.Default()を使う。
func New(store RemoteStore, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		store:     store,
		logger:    logger,
		now:       time.Now,
		pending:   make(map[string]*pendingRemoval),
		observers: make(map[int]func(State)),
	}
}

// Load はリモートの全件を取得し、手元の一覧を丸ごと置き換える。
// userIDが空の場合は未ログインとして空の一覧にし、リモートは呼び出さない。
// 取得に失敗した場合は一覧を空にし、LastErrorにRemoteUnavailableを設定して同じエラーを返す。
// 後から開始したLoadがある場合、先に開始したLoadの結果は捨てる。
func (s *Synchronizer) Load(ctx context.Context, userID string) error {
	if userID == "" {
		s.mu.Lock()
		s.entries = nil
		s.isLoading = false
		s.lastError = nil
		s.loadSeq++
		s.loadGen++
		s.mu.Unlock()
		s.notify()
		return nil
	}

	// 1. 読み込み中に遷移
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.isLoading = true
	s.mu.Unlock()
	s.notify()

	// 2. リモートから全件取得（ロックは持たない）
	entries, err := s.store.ListAll(ctx, userID)

	// 3. 結果を反映
	s.mu.Lock()
	if s.closed || seq != s.loadSeq {
		s.mu.Unlock()
		if err != nil {
			return errRemoteUnavailable(MessageLoadFailed, err)
		}
		return nil
	}

	var syncErr *SyncError
	if err != nil {
		syncErr = errRemoteUnavailable(MessageLoadFailed, err)
		s.entries = nil
		s.lastError = syncErr
	} else {
		s.entries = sortedCopy(entries)
		s.lastError = nil
	}
	s.isLoading = false
	s.loadGen++
	s.mu.Unlock()

	if syncErr != nil {
		s.logger.Warn("保存済みデザインの読み込みに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.notify()
		return syncErr
	}

	s.notify()
	return nil
}

// Save は商品を保存し、保存済みデザインのIDを返す。
// 同じproductIdが既に保存されている場合は新規作成せず既存のIDを返す。
// 手元の一覧とLastErrorは変更しない。表示に反映するには続けてAddOptimisticを呼ぶ。
func (s *Synchronizer) Save(ctx context.Context, userID string, item model.CatalogItem) (string, error) {
	if userID == "" {
		return "", errNotAuthenticated()
	}

	existing, err := s.store.FindByProductID(ctx, userID, item.ProductID)
	if err != nil {
		return "", errRemoteUnavailable(MessageSaveFailed, err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	created, err := s.store.Create(ctx, userID, item)
	if err != nil {
		return "", errRemoteUnavailable(MessageSaveFailed, err)
	}

	s.logger.Debug("デザインを保存しました",
		slog.String("user_id", userID),
		slog.String("product_id", item.ProductID),
		slog.String("entry_id", created.ID),
	)

	return created.ID, nil
}

// AddOptimistic は保存成功後の項目を手元の一覧に即座に追加する。リモートは呼び出さない。
// 同じproductIdの項目が既にある場合は何もしない（先に追加した方が残る）。
// SavedAtにはクライアントの現在時刻を入れる。次のLoadでストアの時刻に置き換わる。
func (s *Synchronizer) AddOptimistic(item model.CatalogItem, entryID string) {
	s.mu.Lock()
	for _, e := range s.entries {
		if e.ProductID == item.ProductID {
			s.mu.Unlock()
			return
		}
	}

	s.entries = append(s.entries, model.SavedEntry{
		ID:        entryID,
		ProductID: item.ProductID,
		Item:      item,
		SavedAt:   s.now(),
	})
	sortEntries(s.entries)
	s.mu.Unlock()

	s.notify()
}

// Remove は保存済みデザインを削除する。userIDが空の場合は何もしない。
//
// 遷移は3段階で行う:
//  1. 適用: 手元の一覧から取り除き、ロールバック用の写しを保持する
//  2. 反映: リモートの削除を呼び出す
//  3. 確定またはロールバック: 失敗時は写しを一覧に戻して savedAt の降順に並べ直す
//
// 手元に該当IDがない場合はリモートを呼ばずにnilを返す。
// 写しを戻すのは、同じIDが一覧になく、かつ削除適用後にLoadが完了していない場合だけ。
func (s *Synchronizer) Remove(ctx context.Context, userID, entryID string) error {
	if userID == "" {
		return nil
	}

	// 1. 適用
	removal, ok := s.applyRemoval(entryID)
	if !ok {
		return nil
	}
	s.notify()

	// 反映待ちの印は成否に関わらず必ず外す
	defer func() {
		s.mu.Lock()
		delete(s.pending, entryID)
		s.mu.Unlock()
		s.notify()
	}()

	// 2. 反映
	err := s.store.DeleteByID(ctx, userID, entryID)
	if err == nil {
		return nil
	}

	// 3. ロールバック
	syncErr := errRemoteUnavailable(MessageRemoveFailed, err)
	s.rollbackRemoval(removal, syncErr)

	s.logger.Warn("デザインの削除に失敗しました",
		slog.String("user_id", userID),
		slog.String("entry_id", entryID),
		slog.String("error", err.Error()),
	)

	return syncErr
}

// applyRemoval は手元の一覧から項目を取り除き、ロールバック用の写しを登録する。
// 該当する項目がない場合、または同じIDの削除が反映待ちの場合はfalseを返す。
func (s *Synchronizer) applyRemoval(entryID string) (*pendingRemoval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, inFlight := s.pending[entryID]; inFlight {
		return nil, false
	}

	idx := indexOf(s.entries, entryID)
	if idx < 0 {
		return nil, false
	}

	removal := &pendingRemoval{
		entry:   s.entries[idx],
		loadGen: s.loadGen,
	}
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	s.pending[entryID] = removal

	return removal, true
}

// rollbackRemoval はリモート削除の失敗を記録し、保持していた写しを一覧に戻す。
func (s *Synchronizer) rollbackRemoval(removal *pendingRemoval, syncErr *SyncError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.lastError = syncErr

	// 削除適用後にLoadが完了していれば、その結果を正とする
	if s.loadGen != removal.loadGen {
		return
	}
	if indexOf(s.entries, removal.entry.ID) >= 0 {
		return
	}

	s.entries = append(s.entries, removal.entry)
	sortEntries(s.entries)
}

// Snapshot は現在の状態のスナップショットを返す。
func (s *Synchronizer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Entries は現在の一覧の写しを返す。
func (s *Synchronizer) Entries() []model.SavedEntry {
	return s.Snapshot().Entries
}

// Subscribe は状態が遷移するたびに呼ばれるコールバックを登録する。
// 戻り値の関数を呼ぶと登録を解除する。コールバックはロックの外で呼ばれる。
func (s *Synchronizer) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Close は購読者をすべて解除する。
// 実行中のリモート呼び出しは取り消さず、Close後に返ってきた結果は状態に反映しない。
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.observers = make(map[int]func(State))
	s.mu.Unlock()
}

func (s *Synchronizer) notify() {
	s.mu.Lock()
	if s.closed || len(s.observers) == 0 {
		s.mu.Unlock()
		return
	}
	state := s.snapshotLocked()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (s *Synchronizer) snapshotLocked() State {
	entries := make([]model.SavedEntry, len(s.entries))
	copy(entries, s.entries)

	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return State{
		Entries:           entries,
		IsLoading:         s.isLoading,
		LastError:         s.lastError,
		PendingRemovalIDs: ids,
	}
}

func indexOf(entries []model.SavedEntry, entryID string) int {
	for i, e := range entries {
		if e.ID == entryID {
			return i
		}
	}
	return -1
}

func sortedCopy(entries []model.SavedEntry) []model.SavedEntry {
	out := make([]model.SavedEntry, len(entries))
	copy(out, entries)
	sortEntries(out)
	return out
}

// sortEntries はsavedAtの降順に並べる。同時刻の場合はID順。
func sortEntries(entries []model.SavedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].SavedAt.After(entries[j].SavedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
