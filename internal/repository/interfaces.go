// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/newsline/internal/model"
)

// ArticleRepository は記事データの永続化インターフェース。
// インポーターが記事配信バックエンドのデータベースへ書き込むために使用する。
type ArticleRepository interface {
	// Upsert は記事を保存する。external_urlが重複する場合は何もせずfalseを返す。
	Upsert(ctx context.Context, article *model.Article) (bool, error)

	// Count は保存されている記事の総数を返す。
	Count(ctx context.Context) (int, error)
}
