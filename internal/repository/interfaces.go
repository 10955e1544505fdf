// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/storefront/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、saved_designsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// SavedDesignRepository は保存済みデザインの永続化インターフェース。
// 同一ユーザー・同一商品の行は重複しうる。
type SavedDesignRepository interface {
	// ListAll はユーザーの保存済みデザインをsaved_at降順で返す。
	ListAll(ctx context.Context, userID string) ([]model.SavedEntry, error)

	// FindByProductID はproduct_idで保存済みデザインを1件検索する。見つからない場合はnilを返す。
	// 重複がある場合は最も古い行を返す。
	FindByProductID(ctx context.Context, userID, productID string) (*model.SavedEntry, error)

	// Create は商品スナップショットを保存する。IDとsaved_atはDBが採番する。
	Create(ctx context.Context, userID string, item model.CatalogItem) (*model.SavedEntry, error)

	// DeleteByID は保存済みデザインを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, userID, entryID string) error

	// DeleteByUserID はユーザーの保存済みデザインをすべて削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// DesignRepository はデザインカタログの永続化インターフェース。
type DesignRepository interface {
	// ListActive は公開中のデザインをcreated降順で返す。
	ListActive(ctx context.Context) ([]*model.Design, error)

	// FindByID は指定IDのデザインを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Design, error)

	// Create はデザインを作成する。
	Create(ctx context.Context, design *model.Design) error

	// CreateIfAbsent は同じIDが存在しない場合のみデザインを作成する。
	// 作成した場合はtrueを返す。
	CreateIfAbsent(ctx context.Context, design *model.Design) (bool, error)
}

// GarmentRepository はベース衣料カタログの永続化インターフェース。
type GarmentRepository interface {
	// ListActive は公開中のベース衣料をcreated_at降順で返す。
	ListActive(ctx context.Context) ([]*model.Garment, error)

	// Create はベース衣料を作成する。
	Create(ctx context.Context, garment *model.Garment) error
}
