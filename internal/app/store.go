package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/remotestore"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/savedsync"
	"github.com/hitoshi/storefront/internal/user"
)

// savedBackend は保存済みデザインの保存先。
// サービス層のストア操作と、退会時の一括削除の両方を提供する。
type savedBackend interface {
	savedsync.RemoteStore
	user.SavedDesignDeleter
}

// openSavedBackend は設定に従って保存済みデザインの保存先を開く。
// 戻り値のclose関数は必ず呼ぶこと。
func openSavedBackend(ctx context.Context, cfg *config.Config, db *sql.DB) (savedBackend, func(), error) {
	switch cfg.SavedStoreBackend {
	case config.BackendMongo:
		mdb, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open saved designs store: %w", err)
		}
		closeFn := func() {
			if err := mdb.Client().Disconnect(context.Background()); err != nil {
				slog.Warn("failed to disconnect mongodb", slog.String("error", err.Error()))
			}
		}

		store := remotestore.NewMongoStore(mdb)
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}

		slog.Info("saved designs store: mongodb",
			slog.String("database", mdb.Name()),
		)
		return store, closeFn, nil
	default:
		slog.Info("saved designs store: postgres")
		return repository.NewPostgresSavedDesignRepo(db), func() {}, nil
	}
}
