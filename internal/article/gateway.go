// Package article は記事ゲートウェイを提供する。
// ホスティング型バックエンドのデータAPIから記事一覧/単体を取得し、
// ストレージ側の行形式（snake_case）をアプリ側のArticle形式に変換する。
// エラーの正規化は認証ゲートウェイと同じ設計だが、タクソノミと規則は
// 記事取得用に独立して持つ。
package article

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hitoshi/newsline/internal/backend"
	"github.com/hitoshi/newsline/internal/model"
	"github.com/hitoshi/newsline/internal/result"
)

const (
	// articlesTable はバックエンドの記事テーブル名。
	articlesTable = "articles"
	// articleColumns は取得するカラムの射影。
	articleColumns = "id, title, summary, tags, external_url, created_at"
	// orderColumn は並び順の基準カラム。一覧は常に新着順(降順)で返す。
	orderColumn = "created_at"
)

// BackendStore はデータバックエンドの呼び出しインターフェース。
// 本番ではbackend.Clientを、テストではスタブを束縛する。
type BackendStore interface {
	Select(ctx context.Context, table string, q backend.Query) ([]json.RawMessage, error)
	SelectSingle(ctx context.Context, table string, q backend.Query) (json.RawMessage, error)
}

// Gateway は記事取得操作を正規化済みResult形式で提供するゲートウェイ。
type Gateway struct {
	store  BackendStore
	logger *slog.Logger
}

// NewGateway はGatewayを生成する。
func NewGateway(store BackendStore, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:  store,
		logger: logger,
	}
}

func ok[T any](value T) result.Result[T, *model.ArticleError] {
	return result.Ok[T, *model.ArticleError](value)
}

func fail[T any](err *model.ArticleError) result.Result[T, *model.ArticleError] {
	return result.Err[T](err)
}

// articleRow はバックエンドの行形式（snake_case）を表す。
type articleRow struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	ExternalURL string   `json:"external_url"`
	CreatedAt   string   `json:"created_at"`
}

// toArticle は行をアプリ側のArticleに変換する。
// tagsがnullの場合は空スライスに揃える（アプリモデルにnullを持ち込まない）。
func (r articleRow) toArticle() model.Article {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Article{
		ID:          r.ID,
		Title:       r.Title,
		Summary:     r.Summary,
		Tags:        tags,
		ExternalURL: r.ExternalURL,
		CreatedAt:   r.CreatedAt,
	}
}

// FetchArticles は記事一覧を新着順で取得する。
// 結果が空の場合は空スライスの成功として返す（エラーではない）。
func (g *Gateway) FetchArticles(ctx context.Context) result.Result[[]model.Article, *model.ArticleError] {
	rows, err := g.store.Select(ctx, articlesTable, backend.Query{
		Select:     articleColumns,
		OrderBy:    orderColumn,
		Descending: true,
	})
	if err != nil {
		return fail[[]model.Article](normalizeError(err))
	}

	articles := make([]model.Article, 0, len(rows))
	for _, raw := range rows {
		var row articleRow
		if err := json.Unmarshal(raw, &row); err != nil {
			g.logger.Error("記事行のパースに失敗しました", slog.String("error", err.Error()))
			return fail[[]model.Article](model.NewArticleError(model.ArticleErrUnknown))
		}
		articles = append(articles, row.toArticle())
	}

	return ok(articles)
}

// FetchArticleByID は指定IDの記事を取得する。
// 一致する行がない場合はnot_foundを返す。
func (g *Gateway) FetchArticleByID(ctx context.Context, id string) result.Result[model.Article, *model.ArticleError] {
	raw, err := g.store.SelectSingle(ctx, articlesTable, backend.Query{
		Select: articleColumns,
		Eq:     map[string]string{"id": id},
	})
	if err != nil {
		return fail[model.Article](normalizeError(err))
	}
	if len(raw) == 0 {
		return fail[model.Article](model.NewArticleError(model.ArticleErrNotFound))
	}

	var row articleRow
	if err := json.Unmarshal(raw, &row); err != nil {
		g.logger.Error("記事行のパースに失敗しました", slog.String("error", err.Error()))
		return fail[model.Article](model.NewArticleError(model.ArticleErrUnknown))
	}

	return ok(row.toArticle())
}

// backendErrorCodes はデータAPI固有コードから直接決まる分類。
var backendErrorCodes = map[string]model.ArticleErrorCode{
	"42501":               model.ArticleErrPermissionDenied, // 行レベルセキュリティによる拒否
	backend.ErrCodeNoRows: model.ArticleErrNotFound,
}

// normalizationRule は生エラーの分類規則。フレーズはすべて小文字で持つ。
type normalizationRule struct {
	code    model.ArticleErrorCode
	phrases []string
}

// normalizationRules は上から順に評価される。一致しない場合はunknown_error。
var normalizationRules = []normalizationRule{
	{model.ArticleErrPermissionDenied, []string{"permission denied", "row-level security", "insufficient privilege"}},
	{model.ArticleErrNotFound, []string{"not found", "no rows"}},
	{model.ArticleErrNetwork, []string{"network", "fetch", "connection", "timeout"}},
}

// normalizeError はバックエンドの生エラーを閉じたエラーコード集合に分類する。
// バックエンド固有コードの一致を先に、メッセージの照合（大文字小文字を区別
// しない）を後に評価する。分類は必ず値を返す（panicしない）。
func normalizeError(err error) *model.ArticleError {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		return model.NewArticleError(model.ArticleErrNetwork)
	}

	if code, found := backendErrorCodes[apiErr.Code]; found {
		return model.NewArticleError(code)
	}

	message := strings.ToLower(apiErr.Message)
	for _, rule := range normalizationRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(message, phrase) {
				return model.NewArticleError(rule.code)
			}
		}
	}

	return model.NewArticleError(model.ArticleErrUnknown)
}
