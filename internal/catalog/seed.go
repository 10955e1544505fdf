package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/storefront/internal/model"
)

// seedAuthor は初期データの作者名。
const seedAuthor = "storefront"

type seedProduct struct {
	id          string
	name        string
	description string
	price       string
	amount      float64
	image       string
	categories  []model.Category
	sku         string
}

var seedProducts = []seedProduct{
	{"prod_classic_crew", "Classic Crew", "Essential crewneck tee, soft cotton.", "$24.99", 24.99,
		"https://picsum.photos/seed/tee1/400/400", []model.Category{model.CategoryTees, model.CategoryBestseller}, "TEE-CREW-001"},
	{"prod_vintage_logo", "Vintage Logo", "Retro logo print on heavyweight cotton.", "$29.99", 29.99,
		"https://picsum.photos/seed/tee2/400/400", []model.Category{model.CategoryTees, model.CategoryLimitedEdition}, "TEE-VINT-002"},
	{"prod_minimal_stripe", "Minimal Stripe", "Clean striped design, relaxed fit.", "$26.99", 26.99,
		"https://picsum.photos/seed/tee3/400/400", []model.Category{model.CategoryTees, model.CategoryNew}, "TEE-STRP-003"},
	{"prod_oversized_fit", "Oversized Fit", "Oversized unisex tee for a relaxed look.", "$32.99", 32.99,
		"https://picsum.photos/seed/tee4/400/400", []model.Category{model.CategoryTees, model.CategoryBestseller, model.CategoryNew}, "TEE-OVER-004"},
	{"prod_graphic_print", "Graphic Print", "Bold graphic print, 100% cotton.", "$27.99", 27.99,
		"https://picsum.photos/seed/tee5/400/400", []model.Category{model.CategoryTees, model.CategoryLimitedEdition}, "TEE-GRPH-005"},
	{"prod_earth_tone", "Earth Tone", "Natural earth tone palette, organic cotton.", "$25.99", 25.99,
		"https://picsum.photos/seed/tee6/400/400", []model.Category{model.CategoryTees, model.CategoryNew, model.CategoryBestseller}, "TEE-EARTH-006"},
}

// SeedDesigns は初期データとなるデザインを返す。
// createdは一覧で定義順に並ぶよう1分ずつずらす。
func SeedDesigns(base time.Time) []*model.Design {
	designs := make([]*model.Design, 0, len(seedProducts))
	for i, p := range seedProducts {
		amount := p.amount
		sku := p.sku
		categories := make([]model.Category, len(p.categories))
		copy(categories, p.categories)
		designs = append(designs, &model.Design{
			ID:          p.id,
			Name:        p.name,
			Author:      seedAuthor,
			Created:     base.Add(-time.Duration(i) * time.Minute),
			Categories:  categories,
			Image:       p.image,
			Description: p.description,
			Price:       p.price,
			PriceAmount: &amount,
			SKU:         &sku,
			Tags:        []string{"seed"},
			Active:      true,
		})
	}
	return designs
}

// Seed は初期データのデザインを登録する。既に存在するIDはスキップする。
// 新たに登録した件数を返す。
func (s *Service) Seed(ctx context.Context) (int, error) {
	inserted := 0
	for _, d := range SeedDesigns(s.now().UTC()) {
		created, err := s.designRepo.CreateIfAbsent(ctx, d)
		if err != nil {
			return inserted, fmt.Errorf("初期データ %s の登録に失敗しました: %w", d.ID, err)
		}
		if created {
			inserted++
		}
	}

	s.logger.Info("初期データの登録が完了しました",
		slog.Int("inserted", inserted),
		slog.Int("total", len(seedProducts)),
	)
	return inserted, nil
}
