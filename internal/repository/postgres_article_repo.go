package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/newsline/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

var _ ArticleRepository = (*PostgresArticleRepo)(nil)

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// Upsert は記事を保存する。
// external_urlにユニーク制約があるため、既存の記事は上書きせずスキップする。
// 新規に挿入された場合はtrueを返す。
func (r *PostgresArticleRepo) Upsert(ctx context.Context, article *model.Article) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, summary, tags, external_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (external_url) DO NOTHING`,
		article.ID, article.Title, article.Summary,
		pq.Array(article.Tags), article.ExternalURL, article.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("記事の保存に失敗しました: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("挿入結果の確認に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// Count は保存されている記事の総数を返す。
func (r *PostgresArticleRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("記事数の取得に失敗しました: %w", err)
	}
	return count, nil
}
