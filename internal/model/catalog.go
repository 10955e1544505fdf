package model

import "time"

// Category はカタログ商品のカテゴリタグ。
type Category string

// 定義済みカテゴリ
const (
	CategoryTees           Category = "tees"
	CategoryHoodies        Category = "hoodies"
	CategoryAccessories    Category = "accessories"
	CategoryLimitedEdition Category = "limited-edition"
	CategoryBestseller     Category = "bestseller"
	CategoryNew            Category = "new"
)

// AllowedCategories は受け付けるカテゴリの一覧。表示順を兼ねる。
var AllowedCategories = []Category{
	CategoryTees,
	CategoryHoodies,
	CategoryAccessories,
	CategoryLimitedEdition,
	CategoryBestseller,
	CategoryNew,
}

// DefaultCategories はカテゴリが指定されなかった場合の既定値。
func DefaultCategories() []Category {
	return []Category{CategoryTees, CategoryNew}
}

// IsAllowedCategory はカテゴリが許可リストに含まれるかを判定する。
func IsAllowedCategory(c Category) bool {
	for _, allowed := range AllowedCategories {
		if c == allowed {
			return true
		}
	}
	return false
}

// CatalogItem は保存対象となる商品のスナップショット。
// 保存時点の内容を非正規化して保持するため、カタログ側の後続の編集は反映されない。
type CatalogItem struct {
	ProductID   string     `json:"productId" bson:"productId"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description" bson:"description"`
	Price       string     `json:"price" bson:"price"`
	PriceAmount *float64   `json:"priceAmount,omitempty" bson:"priceAmount,omitempty"`
	Image       string     `json:"image" bson:"image"`
	Categories  []Category `json:"categories" bson:"categories"`
	SKU         *string    `json:"sku,omitempty" bson:"sku,omitempty"`
}

// Design はユーザーまたは運営が登録したデザインを表す。
type Design struct {
	ID          string
	Name        string
	Author      string
	Created     time.Time
	Categories  []Category
	Image       string
	Description string
	Price       string
	PriceAmount *float64
	SKU         *string
	Tags        []string
	Active      bool
}

// CatalogItem はデザインを保存用のスナップショットに変換する。
func (d *Design) CatalogItem() CatalogItem {
	categories := make([]Category, len(d.Categories))
	copy(categories, d.Categories)
	return CatalogItem{
		ProductID:   d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		PriceAmount: d.PriceAmount,
		Image:       d.Image,
		Categories:  categories,
		SKU:         d.SKU,
	}
}

// Garment は無地のベース衣料（ボディ）を表す。
type Garment struct {
	ID          string
	Name        string
	Sizes       []string
	Color       string
	SKU         string
	Author      string
	ReleaseYear int
	Categories  []Category
	Image       string
	Description string
	Price       string
	Active      bool
	CreatedAt   time.Time
}
