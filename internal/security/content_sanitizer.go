// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は商品のテキスト項目を保存前にサニタイズし、
// 一覧・詳細を表示するフロントエンドでのstored XSSを防ぐ。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// ContentSanitizer は商品テキストのサニタイズ機能のインターフェース。
type ContentSanitizer interface {
	// PlainText はすべてのタグを除去したプレーンテキストを返す。name、category用。
	PlainText(raw string) string
	// RichText は簡単な書式タグのみを残したHTMLを返す。description用。
	RichText(raw string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	strict *bluemonday.Policy
	rich   *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
// RichTextの許可タグ: p, br, ul, ol, li, strong, em。属性はすべて除去する。
func NewContentSanitizer() *contentSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")

	return &contentSanitizer{
		strict: bluemonday.StrictPolicy(),
		rich:   rich,
	}
}

// PlainText はタグを除去したプレーンテキストを返す。
// 実体参照は先にすべて展開してからタグを除去するため、
// エンコードされたタグが保存後に有効なタグとして復元されることはない。
// JSONとして返すため、表示側でのエスケープを前提とする。
func (s *contentSanitizer) PlainText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(unescapeAll(raw))))
}

// RichText は許可タグ以外を除去したHTMLを返す。
// タグを含まない入力はテキストとして無害なのでそのまま返す。
func (s *contentSanitizer) RichText(raw string) string {
	if !hasMarkup(raw) {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(s.rich.Sanitize(raw))
}

// unescapeAll は変化しなくなるまで実体参照を展開する。
// 展開のたびに文字列は短くなるので必ず終了する。
func unescapeAll(raw string) string {
	for {
		next := html.UnescapeString(raw)
		if next == raw {
			return raw
		}
		raw = next
	}
}

// hasMarkup はrawにテキスト以外のトークン（タグ、コメント、DOCTYPE）が含まれるかを返す。
func hasMarkup(raw string) bool {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.TextToken:
		default:
			return true
		}
	}
}
