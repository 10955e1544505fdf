package model

import "time"

// SavedEntry はユーザーが保存したデザイン1件を表す。
// IDとSavedAtはリモートストアが採番する。楽観的追加の間はSavedAtにクライアント時刻が入る。
type SavedEntry struct {
	ID        string      `json:"id"`
	ProductID string      `json:"productId"`
	Item      CatalogItem `json:"product"`
	SavedAt   time.Time   `json:"savedAt"`
}
