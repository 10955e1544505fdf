package catalog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/storefront/internal/model"
)

// --- モック ---

type mockDesignRepo struct {
	listActiveFn     func(ctx context.Context) ([]*model.Design, error)
	findByIDFn       func(ctx context.Context, id string) (*model.Design, error)
	createFn         func(ctx context.Context, design *model.Design) error
	createIfAbsentFn func(ctx context.Context, design *model.Design) (bool, error)
}

func (m *mockDesignRepo) ListActive(ctx context.Context) ([]*model.Design, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}
func (m *mockDesignRepo) FindByID(ctx context.Context, id string) (*model.Design, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockDesignRepo) Create(ctx context.Context, design *model.Design) error {
	if m.createFn != nil {
		return m.createFn(ctx, design)
	}
	return nil
}
func (m *mockDesignRepo) CreateIfAbsent(ctx context.Context, design *model.Design) (bool, error) {
	if m.createIfAbsentFn != nil {
		return m.createIfAbsentFn(ctx, design)
	}
	return true, nil
}

type mockGarmentRepo struct {
	listActiveFn func(ctx context.Context) ([]*model.Garment, error)
	createFn     func(ctx context.Context, garment *model.Garment) error
}

func (m *mockGarmentRepo) ListActive(ctx context.Context) ([]*model.Garment, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}
func (m *mockGarmentRepo) Create(ctx context.Context, garment *model.Garment) error {
	if m.createFn != nil {
		return m.createFn(ctx, garment)
	}
	return nil
}

// passSanitizer は前後の空白だけを取り除く。
type passSanitizer struct{}

func (passSanitizer) Sanitize(raw string) string { return strings.TrimSpace(raw) }
func (passSanitizer) SanitizeName(raw string) string { return strings.TrimSpace(raw) }

type mockValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockValidator) ValidateImageURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

type mockProber struct {
	probeFn func(ctx context.Context, imageURL string) error
}

func (m *mockProber) Probe(ctx context.Context, imageURL string) error {
	return m.probeFn(ctx, imageURL)
}

type countingCollector struct {
	created map[string]int
}

func (c *countingCollector) RecordSavedOperation(string, string, time.Duration) {}
func (c *countingCollector) RecordCatalogCreated(kind string) {
	if c.created == nil {
		c.created = map[string]int{}
	}
	c.created[kind]++
}
func (c *countingCollector) RecordDuplicatesRemoved(int64) {}
func (c *countingCollector) RecordSessionsExpired(int64) {}
func (c *countingCollector) RecordHTTPStatus(int) {}

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestService(designRepo *mockDesignRepo, garmentRepo *mockGarmentRepo, validator *mockValidator, prober ImageProber) *Service {
	svc := NewService(designRepo, garmentRepo, passSanitizer{}, validator, prober, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "0a1b2c3d-4e5f-6789-abcd-ef0123456789" }
	return svc
}

// --- テスト ---

// TestParseCategories はカテゴリ文字列の解析を検証する。
func TestParseCategories(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []model.Category
	}{
		{"empty uses defaults", "", []model.Category{model.CategoryTees, model.CategoryNew}},
		{"comma separated", "hoodies,bestseller", []model.Category{model.CategoryHoodies, model.CategoryBestseller}},
		{"space separated", "tees limited-edition", []model.Category{model.CategoryTees, model.CategoryLimitedEdition}},
		{"case insensitive", "HOODIES, New", []model.Category{model.CategoryHoodies, model.CategoryNew}},
		{"unknown dropped", "hats,tees", []model.Category{model.CategoryTees}},
		{"only unknown uses defaults", "hats,socks", []model.Category{model.CategoryTees, model.CategoryNew}},
		{"duplicates removed", "new,new,tees,new", []model.Category{model.CategoryNew, model.CategoryTees}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCategories(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCategories(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

// TestParseSizes はサイズ文字列の解析と既定値を検証する。
func TestParseSizes(t *testing.T) {
	if got := parseSizes(""); !reflect.DeepEqual(got, []string{"S", "M", "L"}) {
		t.Errorf("parseSizes(\"\") = %v", got)
	}
	if got := parseSizes("XS, XL"); !reflect.DeepEqual(got, []string{"XS", "XL"}) {
		t.Errorf("parseSizes(\"XS, XL\") = %v", got)
	}
}

// TestService_CreateDesign_Defaults は未入力項目に既定値が入ることを検証する。
func TestService_CreateDesign_Defaults(t *testing.T) {
	var stored *model.Design
	designRepo := &mockDesignRepo{
		createFn: func(ctx context.Context, design *model.Design) error {
			stored = design
			return nil
		},
	}
	collector := &countingCollector{}
	svc := newTestService(designRepo, &mockGarmentRepo{}, &mockValidator{}, nil)
	svc.metrics = collector

	d, err := svc.CreateDesign(context.Background(), "author@example.com", DesignInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != d {
		t.Error("created design should be passed to repository")
	}
	if d.Name != DefaultDesignName {
		t.Errorf("Name = %q, want %q", d.Name, DefaultDesignName)
	}
	if d.Image != DefaultDesignImage {
		t.Errorf("Image = %q, want %q", d.Image, DefaultDesignImage)
	}
	if d.Price != "$0.00" || d.PriceAmount == nil || *d.PriceAmount != 0 {
		t.Errorf("Price = %q / %v, want $0.00 / 0", d.Price, d.PriceAmount)
	}
	if d.SKU == nil || *d.SKU != "DES-0A1B2C3D" {
		t.Errorf("SKU = %v, want DES-0A1B2C3D", d.SKU)
	}
	if d.Author != "author@example.com" {
		t.Errorf("Author = %q", d.Author)
	}
	if !d.Created.Equal(fixedNow) {
		t.Errorf("Created = %v, want %v", d.Created, fixedNow)
	}
	if !reflect.DeepEqual(d.Categories, model.DefaultCategories()) {
		t.Errorf("Categories = %v", d.Categories)
	}
	if !reflect.DeepEqual(d.Tags, []string{"user-created"}) {
		t.Errorf("Tags = %v", d.Tags)
	}
	if !d.Active {
		t.Error("design should be active")
	}
	if collector.created["design"] != 1 {
		t.Errorf("design created metric = %d, want 1", collector.created["design"])
	}
}

// TestService_CreateDesign_InvalidImage は画像URLの検証エラーがINVALID_IMAGE_URLになることを検証する。
func TestService_CreateDesign_InvalidImage(t *testing.T) {
	createCalled := false
	designRepo := &mockDesignRepo{
		createFn: func(ctx context.Context, design *model.Design) error {
			createCalled = true
			return nil
		},
	}
	validator := &mockValidator{
		validateFn: func(rawURL string) error { return errors.New("private address") },
	}
	svc := newTestService(designRepo, &mockGarmentRepo{}, validator, nil)

	_, err := svc.CreateDesign(context.Background(), "a@example.com", DesignInput{Image: "http://127.0.0.1/x.png"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidImageURL {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidImageURL)
	}
	if createCalled {
		t.Error("repository should not be called on invalid image")
	}
}

// TestService_CreateDesign_ProbeFailure は到達確認に失敗した画像を拒否することを検証する。
func TestService_CreateDesign_ProbeFailure(t *testing.T) {
	prober := &mockProber{
		probeFn: func(ctx context.Context, imageURL string) error { return errors.New("status 404") },
	}
	svc := newTestService(&mockDesignRepo{}, &mockGarmentRepo{}, &mockValidator{}, prober)

	_, err := svc.CreateDesign(context.Background(), "a@example.com", DesignInput{Image: "https://cdn.example.com/x.png"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidImageURL {
		t.Fatalf("expected INVALID_IMAGE_URL, got %v", err)
	}
}

// TestService_CreateDesign_KeepsValidImage は検証済みの画像URLがそのまま使われることを検証する。
func TestService_CreateDesign_KeepsValidImage(t *testing.T) {
	probed := ""
	prober := &mockProber{
		probeFn: func(ctx context.Context, imageURL string) error {
			probed = imageURL
			return nil
		},
	}
	svc := newTestService(&mockDesignRepo{}, &mockGarmentRepo{}, &mockValidator{}, prober)

	d, err := svc.CreateDesign(context.Background(), "a@example.com", DesignInput{
		Name:       "  Sunset  ",
		Image:      " https://cdn.example.com/sunset.png ",
		Categories: "hoodies",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Image != "https://cdn.example.com/sunset.png" || probed != d.Image {
		t.Errorf("Image = %q, probed = %q", d.Image, probed)
	}
	if d.Name != "Sunset" {
		t.Errorf("Name = %q, want Sunset", d.Name)
	}
	if !reflect.DeepEqual(d.Categories, []model.Category{model.CategoryHoodies}) {
		t.Errorf("Categories = %v", d.Categories)
	}
}

// TestService_CreateDesign_RepositoryError はリポジトリのエラーがラップされて返ることを検証する。
func TestService_CreateDesign_RepositoryError(t *testing.T) {
	dbErr := errors.New("connection refused")
	designRepo := &mockDesignRepo{
		createFn: func(ctx context.Context, design *model.Design) error { return dbErr },
	}
	svc := newTestService(designRepo, &mockGarmentRepo{}, &mockValidator{}, nil)

	_, err := svc.CreateDesign(context.Background(), "a@example.com", DesignInput{})
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped dbErr, got %v", err)
	}
}

// TestService_CreateGarment_Defaults はベース衣料の既定値を検証する。
func TestService_CreateGarment_Defaults(t *testing.T) {
	svc := newTestService(&mockDesignRepo{}, &mockGarmentRepo{}, &mockValidator{}, nil)

	g, err := svc.CreateGarment(context.Background(), "a@example.com", GarmentInput{ReleaseYear: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Name != DefaultGarmentName || g.Color != DefaultGarmentColor || g.Image != DefaultGarmentImage {
		t.Errorf("unexpected defaults: %+v", g)
	}
	if g.SKU != "GAR-0A1B2C3D" {
		t.Errorf("SKU = %q, want GAR-0A1B2C3D", g.SKU)
	}
	if g.ReleaseYear != fixedNow.Year() {
		t.Errorf("ReleaseYear = %d, want %d", g.ReleaseYear, fixedNow.Year())
	}
	if !reflect.DeepEqual(g.Sizes, []string{"S", "M", "L"}) {
		t.Errorf("Sizes = %v", g.Sizes)
	}
	if g.Price != DefaultGarmentPrice {
		t.Errorf("Price = %q", g.Price)
	}
}

// TestService_CreateGarment_ReleaseYear は入力された発売年が使われることを検証する。
func TestService_CreateGarment_ReleaseYear(t *testing.T) {
	svc := newTestService(&mockDesignRepo{}, &mockGarmentRepo{}, &mockValidator{}, nil)

	g, err := svc.CreateGarment(context.Background(), "a@example.com", GarmentInput{ReleaseYear: " 2019 ", Color: "Black"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.ReleaseYear != 2019 {
		t.Errorf("ReleaseYear = %d, want 2019", g.ReleaseYear)
	}
	if g.Color != "Black" {
		t.Errorf("Color = %q, want Black", g.Color)
	}
}

// TestService_ListDesigns はデザインがスナップショットに変換され、カテゴリが正規化されることを検証する。
func TestService_ListDesigns(t *testing.T) {
	sku := "TEE-CREW-001"
	designRepo := &mockDesignRepo{
		listActiveFn: func(ctx context.Context) ([]*model.Design, error) {
			return []*model.Design{
				{ID: "prod_a", Name: "A", Price: "$1.00", SKU: &sku, Categories: []model.Category{"bogus"}},
				{ID: "prod_b", Name: "B", Categories: []model.Category{model.CategoryHoodies, model.CategoryHoodies}},
			}, nil
		},
	}
	svc := newTestService(designRepo, &mockGarmentRepo{}, &mockValidator{}, nil)

	items, err := svc.ListDesigns(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ProductID != "prod_a" || items[0].SKU == nil || *items[0].SKU != sku {
		t.Errorf("items[0] = %+v", items[0])
	}
	if !reflect.DeepEqual(items[0].Categories, model.DefaultCategories()) {
		t.Errorf("items[0].Categories = %v", items[0].Categories)
	}
	if !reflect.DeepEqual(items[1].Categories, []model.Category{model.CategoryHoodies}) {
		t.Errorf("items[1].Categories = %v", items[1].Categories)
	}
}

// TestService_FindDesign_NotFound は存在しないデザインでDESIGN_NOT_FOUNDを返すことを検証する。
func TestService_FindDesign_NotFound(t *testing.T) {
	svc := newTestService(&mockDesignRepo{}, &mockGarmentRepo{}, &mockValidator{}, nil)

	_, err := svc.FindDesign(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDesignNotFound {
		t.Fatalf("expected DESIGN_NOT_FOUND, got %v", err)
	}
}

// TestService_Seed は初期データが一度だけ登録されることを検証する。
func TestService_Seed(t *testing.T) {
	existing := map[string]bool{}
	designRepo := &mockDesignRepo{
		createIfAbsentFn: func(ctx context.Context, design *model.Design) (bool, error) {
			if existing[design.ID] {
				return false, nil
			}
			existing[design.ID] = true
			return true, nil
		},
	}
	svc := newTestService(designRepo, &mockGarmentRepo{}, &mockValidator{}, nil)

	inserted, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 6 {
		t.Errorf("first seed inserted = %d, want 6", inserted)
	}

	inserted, err = svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second seed inserted = %d, want 0", inserted)
	}
}

// TestSeedDesigns は初期データの内容と並び順を検証する。
func TestSeedDesigns(t *testing.T) {
	designs := SeedDesigns(fixedNow)
	if len(designs) != 6 {
		t.Fatalf("len = %d, want 6", len(designs))
	}
	first := designs[0]
	if first.ID != "prod_classic_crew" || first.Price != "$24.99" || *first.SKU != "TEE-CREW-001" {
		t.Errorf("first = %+v", first)
	}
	for i := 1; i < len(designs); i++ {
		if !designs[i].Created.Before(designs[i-1].Created) {
			t.Errorf("designs[%d] should be older than designs[%d]", i, i-1)
		}
		if !designs[i].Active {
			t.Errorf("designs[%d] should be active", i)
		}
	}
}
