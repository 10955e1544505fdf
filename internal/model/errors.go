// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, saved, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidProduct      = "INVALID_PRODUCT"
	ErrCodeInvalidImageURL     = "INVALID_IMAGE_URL"
	ErrCodeSavedDesignNotFound = "SAVED_DESIGN_NOT_FOUND"
	ErrCodeDesignNotFound      = "DESIGN_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInvalidEmail        = "INVALID_EMAIL"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeCSRFInvalid         = "CSRF_TOKEN_INVALID"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidProductError は保存対象の商品情報が不正な場合のエラーを生成する。
func NewInvalidProductError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProduct,
		Message:  fmt.Sprintf("商品情報が不正です: %s", reason),
		Category: "validation",
		Action:   "productIdと商品名を指定してください。",
	}
}

// NewInvalidImageURLError は画像URLが不正な場合のエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("画像URLが不正です: %s", reason),
		Category: "validation",
		Action:   "公開されている http:// または https:// の画像URLを指定してください。",
	}
}

// NewSavedDesignNotFoundError は保存済みデザインが見つからない場合のエラーを生成する。
func NewSavedDesignNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeSavedDesignNotFound,
		Message:  fmt.Sprintf("保存済みデザインが見つかりません: %s", productID),
		Category: "saved",
		Action:   "保存済みデザインの一覧を更新してください。",
	}
}

// NewDesignNotFoundError はデザインが見つからない場合のエラーを生成する。
func NewDesignNotFoundError(designID string) *APIError {
	return &APIError{
		Code:     ErrCodeDesignNotFound,
		Message:  fmt.Sprintf("指定されたデザインが見つかりません: %s", designID),
		Category: "catalog",
		Action:   "デザインIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidEmailError はメールアドレスが不正な場合のエラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("無効なメールアドレスです: %s", email),
		Category: "validation",
		Action:   "正しいメールアドレスを指定してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewServiceUnavailableError は依存先が応答しない場合のエラーを生成する。
func NewServiceUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  "サービスが一時的に利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
