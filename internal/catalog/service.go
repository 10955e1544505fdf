// Package catalog はデザインとベース衣料のカタログ管理を提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/repository"
)

// ユーザー登録時の既定値
const (
	DefaultDesignName   = "Untitled Design"
	DefaultGarmentName  = "Untitled Garment"
	DefaultDesignImage  = "https://picsum.photos/seed/design-new/400/400"
	DefaultGarmentImage = "https://picsum.photos/seed/garment-new/400/400"
	DefaultDesignPrice  = "$0.00"
	DefaultGarmentPrice = "$24.99"
	DefaultGarmentColor = "White"
	userCreatedTag      = "user-created"
	skuPrefixLength     = 8
)

// Sanitizer は入力テキストのサニタイズを行うインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
	SanitizeName(raw string) string
}

// URLValidator は画像URLの静的検証を行うインターフェース。
type URLValidator interface {
	ValidateImageURL(rawURL string) error
}

// ImageProber は画像URLの到達確認を行うインターフェース。
type ImageProber interface {
	Probe(ctx context.Context, imageURL string) error
}

// DesignInput はデザイン登録の入力。文字列フィールドはフォーム入力をそのまま受ける。
type DesignInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Categories  string `json:"categories"`
}

// GarmentInput はベース衣料登録の入力。
type GarmentInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Color       string `json:"color"`
	Sizes       string `json:"sizes"`
	Categories  string `json:"categories"`
	ReleaseYear string `json:"releaseYear"`
}

// Service はカタログのサービス層。
type Service struct {
	designRepo  repository.DesignRepository
	garmentRepo repository.GarmentRepository
	sanitizer   Sanitizer
	validator   URLValidator
	prober      ImageProber
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewService はServiceの新しいインスタンスを生成する。
// proberがnilの場合、画像の到達確認は行わない。
func NewService(
	designRepo repository.DesignRepository,
	garmentRepo repository.GarmentRepository,
	sanitizer Sanitizer,
	validator URLValidator,
	prober ImageProber,
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
		designRepo:  designRepo,
		garmentRepo: garmentRepo,
		sanitizer:   sanitizer,
		validator:   validator,
		prober:      prober,
		metrics:     collector,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// ListDesigns は公開中のデザインを保存用スナップショットの形で返す。
func (s *Service) ListDesigns(ctx context.Context) ([]model.CatalogItem, error) {
	designs, err := s.designRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("デザイン一覧の取得に失敗しました: %w", err)
	}

	items := make([]model.CatalogItem, 0, len(designs))
	for _, d := range designs {
		d.Categories = NormalizeCategories(d.Categories)
		items = append(items, d.CatalogItem())
	}
	return items, nil
}

// ListGarments は公開中のベース衣料を返す。
func (s *Service) ListGarments(ctx context.Context) ([]*model.Garment, error) {
	garments, err := s.garmentRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ベース衣料一覧の取得に失敗しました: %w", err)
	}
	for _, g := range garments {
		g.Categories = NormalizeCategories(g.Categories)
	}
	return garments, nil
}

// FindDesign は指定IDのデザインを返す。存在しない場合はDESIGN_NOT_FOUNDエラーを返す。
func (s *Service) FindDesign(ctx context.Context, id string) (*model.Design, error) {
	d, err := s.designRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("デザインの取得に失敗しました: %w", err)
	}
	if d == nil {
		return nil, model.NewDesignNotFoundError(id)
	}
	return d, nil
}

// CreateDesign はユーザーが投稿したデザインを登録する。
// 作者はログイン中のメールアドレス、価格は$0.00で固定。
func (s *Service) CreateDesign(ctx context.Context, authorEmail string, input DesignInput) (*model.Design, error) {
	image, err := s.resolveImage(ctx, input.Image, DefaultDesignImage)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	zero := 0.0
	sku := "DES-" + skuSuffix(id)
	design := &model.Design{
		ID:          id,
		Name:        orDefault(s.sanitizer.SanitizeName(input.Name), DefaultDesignName),
		Author:      authorEmail,
		Created:     s.now().UTC(),
		Categories:  ParseCategories(input.Categories),
		Image:       image,
		Description: s.sanitizer.Sanitize(input.Description),
		Price:       DefaultDesignPrice,
		PriceAmount: &zero,
		SKU:         &sku,
		Tags:        []string{userCreatedTag},
		Active:      true,
	}

	if err := s.designRepo.Create(ctx, design); err != nil {
		return nil, fmt.Errorf("デザインの登録に失敗しました: %w", err)
	}

	s.metrics.RecordCatalogCreated("design")
	s.logger.Info("デザインを登録しました",
		slog.String("design_id", design.ID),
		slog.String("author", authorEmail),
	)
	return design, nil
}

// CreateGarment はユーザーが投稿したベース衣料を登録する。
func (s *Service) CreateGarment(ctx context.Context, authorEmail string, input GarmentInput) (*model.Garment, error) {
	image, err := s.resolveImage(ctx, input.Image, DefaultGarmentImage)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := s.newID()
	garment := &model.Garment{
		ID:          id,
		Name:        orDefault(s.sanitizer.SanitizeName(input.Name), DefaultGarmentName),
		Sizes:       parseSizes(input.Sizes),
		Color:       orDefault(s.sanitizer.SanitizeName(input.Color), DefaultGarmentColor),
		SKU:         "GAR-" + skuSuffix(id),
		Author:      authorEmail,
		ReleaseYear: parseReleaseYear(input.ReleaseYear, now.Year()),
		Categories:  ParseCategories(input.Categories),
		Image:       image,
		Description: s.sanitizer.Sanitize(input.Description),
		Price:       DefaultGarmentPrice,
		Active:      true,
		CreatedAt:   now,
	}

	if err := s.garmentRepo.Create(ctx, garment); err != nil {
		return nil, fmt.Errorf("ベース衣料の登録に失敗しました: %w", err)
	}

	s.metrics.RecordCatalogCreated("garment")
	s.logger.Info("ベース衣料を登録しました",
		slog.String("garment_id", garment.ID),
		slog.String("author", authorEmail),
	)
	return garment, nil
}

// resolveImage は画像URLを検証する。空の場合は既定の画像を返す。
func (s *Service) resolveImage(ctx context.Context, raw, fallback string) (string, error) {
	image := strings.TrimSpace(raw)
	if image == "" {
		return fallback, nil
	}
	if err := s.validator.ValidateImageURL(image); err != nil {
		return "", model.NewInvalidImageURLError(err.Error())
	}
	if s.prober != nil {
		if err := s.prober.Probe(ctx, image); err != nil {
			s.logger.Warn("画像URLの到達確認に失敗しました",
				slog.String("image", image),
				slog.String("error", err.Error()),
			)
			return "", model.NewInvalidImageURLError(err.Error())
		}
	}
	return image, nil
}

func skuSuffix(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > skuPrefixLength {
		compact = compact[:skuPrefixLength]
	}
	return strings.ToUpper(compact)
}

func parseReleaseYear(raw string, fallback int) int {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return year
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
