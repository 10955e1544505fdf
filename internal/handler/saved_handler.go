package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/model"
)

// SavedServiceInterface は保存済みデザインハンドラーが必要とするサービスインターフェース。
type SavedServiceInterface interface {
	List(ctx context.Context, userID string) ([]model.SavedEntry, error)
	FindByProduct(ctx context.Context, userID, productID string) (*model.SavedEntry, error)
	Create(ctx context.Context, userID, productID string, item model.CatalogItem) (*model.SavedEntry, error)
	Delete(ctx context.Context, userID, entryID string) error
}

// SavedHandler は保存済みデザインのHTTPハンドラー。
type SavedHandler struct {
	service SavedServiceInterface
}

// NewSavedHandler はSavedHandlerを生成する。
func NewSavedHandler(service SavedServiceInterface) *SavedHandler {
	return &SavedHandler{service: service}
}

// createSavedRequest は保存リクエストのボディ。
type createSavedRequest struct {
	ProductID string            `json:"productId"`
	Product   model.CatalogItem `json:"product"`
}

// List はログイン中ユーザーの保存済みデザインを新しい順に返す。
// GET /api/saved-designs
func (h *SavedHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.SavedEntry{"savedDesigns": entries})
}

// ByProduct は商品IDに対応する保存済みデザインを返す。
// GET /api/saved-designs/by-product/{productId}
func (h *SavedHandler) ByProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productId")
	if productID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidProductError("productId is required"))
		return
	}

	entry, err := h.service.FindByProduct(r.Context(), userID, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Create はデザインを保存する。
// POST /api/saved-designs
func (h *SavedHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createSavedRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.service.Create(r.Context(), userID, req.ProductID, req.Product)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Delete は保存済みデザインを削除する。存在しないIDでも204を返す。
// DELETE /api/saved-designs/{id}
func (h *SavedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
