package savedsync

import (
	"context"

	"github.com/hitoshi/storefront/internal/model"
)

// RemoteStore はユーザーごとの保存済みデザインを保持するリモートストアのインターフェース。
// 正とするデータはこちらにあり、Synchronizerはその写しを手元に持つ。
type RemoteStore interface {
	// ListAll はユーザーの保存済みデザインを全件返す。順序は保証しない。
	ListAll(ctx context.Context, userID string) ([]model.SavedEntry, error)

	// FindByProductID はproductIdで保存済みデザインを検索する。見つからない場合はnilを返す。
	FindByProductID(ctx context.Context, userID, productID string) (*model.SavedEntry, error)

	// Create は保存済みデザインを作成する。IDとSavedAtはストア側で採番する。
	// (userID, productID)の一意性は保証しない。
	Create(ctx context.Context, userID string, item model.CatalogItem) (*model.SavedEntry, error)

	// DeleteByID は保存済みデザインを削除する。存在しないIDの削除は成功として扱う。
	DeleteByID(ctx context.Context, userID, entryID string) error
}
