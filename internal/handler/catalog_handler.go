package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListDesigns(ctx context.Context) ([]model.CatalogItem, error)
	ListGarments(ctx context.Context) ([]*model.Garment, error)
	CreateDesign(ctx context.Context, authorEmail string, input catalog.DesignInput) (*model.Design, error)
	CreateGarment(ctx context.Context, authorEmail string, input catalog.GarmentInput) (*model.Garment, error)
}

// UserFinder は投稿者のメールアドレス解決に使うインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// CatalogHandler はカタログのHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
	users   UserFinder
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface, users UserFinder) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		users:   users,
	}
}

// designResponse は登録したデザインのAPIレスポンス。
type designResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Author      string           `json:"author"`
	Created     time.Time        `json:"created"`
	Categories  []model.Category `json:"categories"`
	Image       string           `json:"image"`
	Description string           `json:"description"`
	Price       string           `json:"price"`
	PriceAmount *float64         `json:"priceAmount,omitempty"`
	SKU         *string          `json:"sku,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Active      bool             `json:"active"`
}

// garmentResponse はベース衣料のAPIレスポンス。
type garmentResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Sizes       []string         `json:"sizes"`
	Color       string           `json:"color"`
	SKU         string           `json:"sku"`
	Author      string           `json:"author"`
	ReleaseYear int              `json:"releaseYear"`
	Categories  []model.Category `json:"categories"`
	Image       string           `json:"image"`
	Description string           `json:"description,omitempty"`
	Price       string           `json:"price,omitempty"`
	Active      bool             `json:"active"`
}

// ListDesigns は公開中のデザイン一覧を返す。
// GET /api/catalog/designs
func (h *CatalogHandler) ListDesigns(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListDesigns(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.CatalogItem{"designs": items})
}

// ListGarments は公開中のベース衣料一覧を返す。
// GET /api/catalog/garments
func (h *CatalogHandler) ListGarments(w http.ResponseWriter, r *http.Request) {
	garments, err := h.service.ListGarments(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]garmentResponse, 0, len(garments))
	for _, g := range garments {
		resp = append(resp, toGarmentResponse(g))
	}
	writeJSON(w, http.StatusOK, map[string][]garmentResponse{"garments": resp})
}

// CreateDesign はデザインを投稿する。
// POST /api/catalog/designs
func (h *CatalogHandler) CreateDesign(w http.ResponseWriter, r *http.Request) {
	email, ok := h.authorEmail(w, r)
	if !ok {
		return
	}

	var input catalog.DesignInput
	if !decodeJSON(w, r, &input) {
		return
	}

	design, err := h.service.CreateDesign(r.Context(), email, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDesignResponse(design))
}

// CreateGarment はベース衣料を投稿する。
// POST /api/catalog/garments
func (h *CatalogHandler) CreateGarment(w http.ResponseWriter, r *http.Request) {
	email, ok := h.authorEmail(w, r)
	if !ok {
		return
	}

	var input catalog.GarmentInput
	if !decodeJSON(w, r, &input) {
		return
	}

	garment, err := h.service.CreateGarment(r.Context(), email, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGarmentResponse(garment))
}

// authorEmail はログイン中ユーザーのメールアドレスを返す。
func (h *CatalogHandler) authorEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return "", false
	}
	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return "", false
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return user.Email, true
}

func toDesignResponse(d *model.Design) designResponse {
	return designResponse{
		ID:          d.ID,
		Name:        d.Name,
		Author:      d.Author,
		Created:     d.Created,
		Categories:  d.Categories,
		Image:       d.Image,
		Description: d.Description,
		Price:       d.Price,
		PriceAmount: d.PriceAmount,
		SKU:         d.SKU,
		Tags:        d.Tags,
		Active:      d.Active,
	}
}

func toGarmentResponse(g *model.Garment) garmentResponse {
	return garmentResponse{
		ID:          g.ID,
		Name:        g.Name,
		Sizes:       g.Sizes,
		Color:       g.Color,
		SKU:         g.SKU,
		Author:      g.Author,
		ReleaseYear: g.ReleaseYear,
		Categories:  g.Categories,
		Image:       g.Image,
		Description: g.Description,
		Price:       g.Price,
		Active:      g.Active,
	}
}
