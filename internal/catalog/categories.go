package catalog

import (
	"strings"

	"github.com/hitoshi/storefront/internal/model"
)

// ParseCategories はカンマまたは空白区切りのカテゴリ文字列を解析する。
// 大文字小文字は区別せず、許可されていない値は捨てる。
// 有効なカテゴリが1つもなければ既定値を返す。
func ParseCategories(raw string) []model.Category {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	categories := make([]model.Category, 0, len(fields))
	for _, f := range fields {
		categories = append(categories, model.Category(f))
	}
	return NormalizeCategories(categories)
}

// NormalizeCategories は許可リストにあるカテゴリのみを出現順に重複なく残す。
// 結果が空の場合は既定値を返す。
func NormalizeCategories(categories []model.Category) []model.Category {
	seen := make(map[model.Category]struct{}, len(categories))
	out := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		if !model.IsAllowedCategory(c) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return model.DefaultCategories()
	}
	return out
}

// parseSizes はカンマまたは空白区切りのサイズ文字列を解析する。空の場合はS, M, L。
func parseSizes(raw string) []string {
	sizes := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(sizes) == 0 {
		return []string{"S", "M", "L"}
	}
	return sizes
}
