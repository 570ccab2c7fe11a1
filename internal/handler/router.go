package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newsline/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// ゲートウェイ
	AuthGateway    AuthGatewayInterface
	ArticleGateway ArticleGatewayInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → LoggingMiddleware → RecoveryMiddleware → RateLimitMiddleware
//
// 認証系ルート（signup/signin）にはブルートフォース対策として厳しめのレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORSミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthGateway)
	articleHandler := NewArticleHandler(deps.ArticleGateway)

	// ヘルスチェック（レート制限の外）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.Route("/auth", func(r chi.Router) {
			// サインアップ・サインインは認証専用レート制限を追加
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/signup", authHandler.SignUp)
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/signin", authHandler.SignIn)

			r.Post("/signout", authHandler.SignOut)
			r.Get("/me", authHandler.Me)
		})

		// 記事
		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/", articleHandler.ListArticles)
			r.Get("/{id}", articleHandler.GetArticle)
		})
	})

	return r
}
