// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はユーザーが入力した商品名や説明文からHTMLを取り除き、
// プレーンテキストとして保存できる形にする。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// 入力テキストの最大文字数（rune単位）
const (
	MaxNameLength        = 120
	MaxDescriptionLength = 2000
)

// ContentSanitizerService はテキスト入力のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は説明文からすべてのタグを除去し、前後の空白を取り除いたテキストを返す。
	// MaxDescriptionLengthを超える部分は切り捨てる。
	Sanitize(raw string) string

	// SanitizeName は商品名をサニタイズする。改行は空白に置き換える。
	SanitizeName(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyはタグをすべて除去し、ポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は説明文をプレーンテキストに変換する。
func (s *contentSanitizer) Sanitize(raw string) string {
	return truncateRunes(s.plainText(raw), MaxDescriptionLength)
}

// SanitizeName は商品名をプレーンテキストに変換する。
func (s *contentSanitizer) SanitizeName(raw string) string {
	text := strings.Join(strings.Fields(s.plainText(raw)), " ")
	return truncateRunes(text, MaxNameLength)
}

// plainText はタグを除去し、StrictPolicyがエスケープした実体参照を元の文字に戻す。
func (s *contentSanitizer) plainText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
