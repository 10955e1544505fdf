package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/savedsync"
)

// APIError はstorefront APIが返した2xx以外のレスポンスを表す。
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("storefront api error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("storefront api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("storefront api error (%d)", e.Status)
}

// errorPayload はAPIの統一エラーフォーマット。
type errorPayload struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

type createRequest struct {
	ProductID string            `json:"productId"`
	Product   model.CatalogItem `json:"product"`
}

type listResponse struct {
	SavedDesigns []model.SavedEntry `json:"savedDesigns"`
}

type designListResponse struct {
	Designs []model.CatalogItem `json:"designs"`
}

// HTTPStore はstorefront APIを介して保存済みデザインを操作するクライアント。
// ユーザーはBearerトークンで識別されるため、userIDはリクエストに含めない。
type HTTPStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPStore はHTTPStoreを生成する。httpClientがnilの場合はタイムアウト20秒のクライアントを使う。
func NewHTTPStore(baseURL, token string, httpClient *http.Client, logger *slog.Logger) (*HTTPStore, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPStore{
		baseURL:    normalized,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// NormalizeBaseURL はベースURLを正規化する。スキームがない場合はエラーを返す。
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("storefront url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid storefront url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("storefront url must include scheme (http:// or https://)")
	}
	return strings.TrimRight(value, "/"), nil
}

// ListAll は保存済みデザインを全件取得する。
func (c *HTTPStore) ListAll(ctx context.Context, userID string) ([]model.SavedEntry, error) {
	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/saved-designs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.SavedDesigns, nil
}

// FindByProductID はproductIdで保存済みデザインを検索する。404の場合はnilを返す。
func (c *HTTPStore) FindByProductID(ctx context.Context, userID, productID string) (*model.SavedEntry, error) {
	var entry model.SavedEntry
	err := c.doJSON(ctx, http.MethodGet, "/api/saved-designs/by-product/"+url.PathEscape(productID), nil, &entry)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Create は保存済みデザインを作成する。
func (c *HTTPStore) Create(ctx context.Context, userID string, item model.CatalogItem) (*model.SavedEntry, error) {
	var entry model.SavedEntry
	req := createRequest{ProductID: item.ProductID, Product: item}
	if err := c.doJSON(ctx, http.MethodPost, "/api/saved-designs", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteByID は保存済みデザインを削除する。
func (c *HTTPStore) DeleteByID(ctx context.Context, userID, entryID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/saved-designs/"+url.PathEscape(entryID), nil, nil)
}

// ListDesigns はカタログのデザイン一覧を取得する。
func (c *HTTPStore) ListDesigns(ctx context.Context) ([]model.CatalogItem, error) {
	var resp designListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/catalog/designs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Designs, nil
}

func (c *HTTPStore) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("storefront APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload errorPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if respBody == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ savedsync.RemoteStore = (*HTTPStore)(nil)
