// SummarySanitizerService はフィード記事の説明文からプレーンテキストの要約を生成する。
// モバイルアプリはHTMLを描画しないため、タグはすべて除去する。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// SummarySanitizerService は記事要約のサニタイズ機能のインターフェースを定義する。
// インポーターが記事を保存する前に使用する。
type SummarySanitizerService interface {
	// Sanitize はHTML混じりの説明文からプレーンテキストの要約を生成する。
	// すべてのHTMLタグを除去し、HTMLエンティティを展開し、
	// 連続する空白を1つにまとめたうえでmaxLength文字（rune単位）に切り詰める。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string, maxLength int) string
}

// summarySanitizer はSummarySanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type summarySanitizer struct {
	policy *bluemonday.Policy
}

// NewSummarySanitizer はSummarySanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去し、テキストのみを通過させる。
// scriptタグやon*イベント属性を含む入力も安全なテキストになる。
func NewSummarySanitizer() *summarySanitizer {
	return &summarySanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTML混じりの説明文からプレーンテキストの要約を生成する。
func (s *summarySanitizer) Sanitize(rawHTML string, maxLength int) string {
	if rawHTML == "" {
		return ""
	}

	// タグ除去。bluemondayはテキストをエンティティエスケープして返すため、
	// 除去後にエンティティを展開してプレーンテキストへ戻す。
	text := s.policy.Sanitize(rawHTML)
	text = html.UnescapeString(text)

	// 連続する空白・改行を1つのスペースにまとめる
	text = strings.Join(strings.Fields(text), " ")

	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		runes := []rune(text)
		text = string(runes[:maxLength])
	}

	return text
}
