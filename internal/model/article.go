// Package model はドメインモデルを定義する。
package model

// Article はモバイルアプリに配信する記事を表す。
// バックエンドの行（snake_case）から毎回新しく構築され、変更されない。
// JSONフィールド名はアプリ側の命名規約（camelCase）に合わせる。
type Article struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"` // バックエンドがnullを返した場合も空スライス（nilにしない）
	ExternalURL string   `json:"externalUrl"`
	CreatedAt   string   `json:"createdAt"` // バックエンドのタイムスタンプ文字列をそのまま保持する
}
