package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newsline/internal/model"
	"github.com/hitoshi/newsline/internal/result"
)

// ArticleGatewayInterface は記事ハンドラーが必要とするゲートウェイインターフェース。
type ArticleGatewayInterface interface {
	// FetchArticles は公開記事の一覧を新しい順で返す。
	FetchArticles(ctx context.Context) result.Result[[]model.Article, *model.ArticleError]
	// FetchArticleByID はIDで記事を1件取得する。
	FetchArticleByID(ctx context.Context, id string) result.Result[model.Article, *model.ArticleError]
}

// ArticleHandler は記事APIのHTTPハンドラー。
type ArticleHandler struct {
	gateway ArticleGatewayInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(gateway ArticleGatewayInterface) *ArticleHandler {
	return &ArticleHandler{gateway: gateway}
}

// articleListResponse は記事一覧のレスポンス。
type articleListResponse struct {
	Articles []model.Article `json:"articles"`
}

// ListArticles は記事一覧を取得する。
// GET /api/articles
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	res := h.gateway.FetchArticles(r.Context())
	if res.IsErr() {
		writeArticleError(w, res.Err())
		return
	}

	writeJSON(w, http.StatusOK, articleListResponse{Articles: res.Value()})
}

// GetArticle はIDで記事を1件取得する。
// GET /api/articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res := h.gateway.FetchArticleByID(r.Context(), id)
	if res.IsErr() {
		writeArticleError(w, res.Err())
		return
	}

	writeJSON(w, http.StatusOK, res.Value())
}
