// Package saved は保存済みデザインのサーバー側サービスを提供する。
package saved

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/savedsync"
)

// 操作種別（メトリクスのopラベル）
const (
	opList   = "list"
	opFind   = "find"
	opCreate = "create"
	opDelete = "delete"
)

// Service は保存済みデザインのサービス層。
// バックエンドはPostgreSQLまたはMongoDBのどちらかを設定で選ぶ。
type Service struct {
	store     savedsync.RemoteStore
	sanitizer catalog.Sanitizer
	validator catalog.URLValidator
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	store savedsync.RemoteStore,
	sanitizer catalog.Sanitizer,
	validator catalog.URLValidator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		sanitizer: sanitizer,
		validator: validator,
		metrics:   collector,
		logger:    logger,
	}
}

// List はユーザーの保存済みデザインを新しい順に返す。saved_atが同じ場合はID昇順。
func (s *Service) List(ctx context.Context, userID string) (entries []model.SavedEntry, err error) {
	defer s.observe(opList, time.Now(), &err)

	entries, err = s.store.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("保存済みデザインの取得に失敗しました: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].SavedAt.After(entries[j].SavedAt)
	})
	if entries == nil {
		entries = []model.SavedEntry{}
	}
	return entries, nil
}

// FindByProduct はproductIdで保存済みデザインを検索する。
// 見つからない場合はSAVED_DESIGN_NOT_FOUNDエラーを返す。
func (s *Service) FindByProduct(ctx context.Context, userID, productID string) (entry *model.SavedEntry, err error) {
	defer s.observe(opFind, time.Now(), &err)

	entry, err = s.store.FindByProductID(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("保存済みデザインの検索に失敗しました: %w", err)
	}
	if entry == nil {
		return nil, model.NewSavedDesignNotFoundError(productID)
	}
	return entry, nil
}

// Create は商品スナップショットを保存する。
// productIDが空の場合はスナップショット側のproductIdを使う。両方あって一致しない場合はエラー。
// 同一商品の重複チェックは行わない。
func (s *Service) Create(ctx context.Context, userID, productID string, item model.CatalogItem) (entry *model.SavedEntry, err error) {
	defer s.observe(opCreate, time.Now(), &err)

	snapshot, err := s.prepareSnapshot(productID, item)
	if err != nil {
		return nil, err
	}

	entry, err = s.store.Create(ctx, userID, snapshot)
	if err != nil {
		return nil, fmt.Errorf("保存済みデザインの作成に失敗しました: %w", err)
	}

	s.logger.Info("デザインを保存しました",
		slog.String("user_id", userID),
		slog.String("product_id", snapshot.ProductID),
		slog.String("entry_id", entry.ID),
	)
	return entry, nil
}

// Delete は保存済みデザインを削除する。存在しないIDの削除も成功として扱う。
func (s *Service) Delete(ctx context.Context, userID, entryID string) (err error) {
	defer s.observe(opDelete, time.Now(), &err)

	if err = s.store.DeleteByID(ctx, userID, entryID); err != nil {
		return fmt.Errorf("保存済みデザインの削除に失敗しました: %w", err)
	}
	return nil
}

// prepareSnapshot は入力を検証し、保存用に整形したスナップショットを返す。
func (s *Service) prepareSnapshot(productID string, item model.CatalogItem) (model.CatalogItem, error) {
	productID = strings.TrimSpace(productID)
	itemProductID := strings.TrimSpace(item.ProductID)
	switch {
	case productID == "" && itemProductID == "":
		return model.CatalogItem{}, model.NewInvalidProductError("productId is required")
	case productID == "":
		productID = itemProductID
	case itemProductID != "" && itemProductID != productID:
		return model.CatalogItem{}, model.NewInvalidProductError("productId does not match product")
	}

	name := s.sanitizer.SanitizeName(item.Name)
	if name == "" {
		return model.CatalogItem{}, model.NewInvalidProductError("product name is required")
	}

	image := strings.TrimSpace(item.Image)
	if image != "" {
		if err := s.validator.ValidateImageURL(image); err != nil {
			return model.CatalogItem{}, model.NewInvalidImageURLError(err.Error())
		}
	}

	snapshot := item
	snapshot.ProductID = productID
	snapshot.Name = name
	snapshot.Image = image
	snapshot.Description = s.sanitizer.Sanitize(item.Description)
	snapshot.Categories = catalog.NormalizeCategories(item.Categories)
	return snapshot, nil
}

func (s *Service) observe(op string, start time.Time, err *error) {
	outcome := metrics.OutcomeSuccess
	if *err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.RecordSavedOperation(op, outcome, time.Since(start))
}
