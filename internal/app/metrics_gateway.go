package app

import (
	"context"
	"time"

	"github.com/hitoshi/newsline/internal/article"
	"github.com/hitoshi/newsline/internal/auth"
	"github.com/hitoshi/newsline/internal/backend"
	"github.com/hitoshi/newsline/internal/handler"
	"github.com/hitoshi/newsline/internal/metrics"
	"github.com/hitoshi/newsline/internal/model"
	"github.com/hitoshi/newsline/internal/result"
)

// metricsAuthGateway は認証ゲートウェイの呼び出し結果をメトリクスとして記録するデコレーター。
type metricsAuthGateway struct {
	gateway   *auth.Gateway
	collector metrics.MetricsCollector
}

var _ handler.AuthGatewayInterface = metricsAuthGateway{}

func (g metricsAuthGateway) SignUp(ctx context.Context, email, password string) result.Result[*backend.Session, *model.AuthError] {
	start := time.Now()
	res := g.gateway.SignUp(ctx, email, password)
	g.recordAuth("signUp", start, res.IsOk(), res.Err())
	return res
}

func (g metricsAuthGateway) SignIn(ctx context.Context, email, password string) result.Result[*backend.Session, *model.AuthError] {
	start := time.Now()
	res := g.gateway.SignIn(ctx, email, password)
	g.recordAuth("signIn", start, res.IsOk(), res.Err())
	return res
}

func (g metricsAuthGateway) SignOut(ctx context.Context, accessToken string) result.Result[struct{}, *model.AuthError] {
	start := time.Now()
	res := g.gateway.SignOut(ctx, accessToken)
	g.recordAuth("signOut", start, res.IsOk(), res.Err())
	return res
}

func (g metricsAuthGateway) CurrentUser(ctx context.Context, accessToken string) result.Result[*backend.User, *model.AuthError] {
	start := time.Now()
	res := g.gateway.CurrentUser(ctx, accessToken)
	g.recordAuth("getCurrentUser", start, res.IsOk(), res.Err())
	return res
}

func (g metricsAuthGateway) recordAuth(operation string, start time.Time, ok bool, err *model.AuthError) {
	g.collector.RecordBackendLatency(operation, time.Since(start))
	if ok {
		g.collector.RecordGatewaySuccess(operation)
		return
	}
	g.collector.RecordGatewayError(operation, string(err.Code))
}

// metricsArticleGateway は記事ゲートウェイの呼び出し結果をメトリクスとして記録するデコレーター。
type metricsArticleGateway struct {
	gateway   *article.Gateway
	collector metrics.MetricsCollector
}

var _ handler.ArticleGatewayInterface = metricsArticleGateway{}

func (g metricsArticleGateway) FetchArticles(ctx context.Context) result.Result[[]model.Article, *model.ArticleError] {
	start := time.Now()
	res := g.gateway.FetchArticles(ctx)
	g.recordArticle("fetchArticles", start, res.IsOk(), res.Err())
	return res
}

func (g metricsArticleGateway) FetchArticleByID(ctx context.Context, id string) result.Result[model.Article, *model.ArticleError] {
	start := time.Now()
	res := g.gateway.FetchArticleByID(ctx, id)
	g.recordArticle("fetchArticleById", start, res.IsOk(), res.Err())
	return res
}

func (g metricsArticleGateway) recordArticle(operation string, start time.Time, ok bool, err *model.ArticleError) {
	g.collector.RecordBackendLatency(operation, time.Since(start))
	if ok {
		g.collector.RecordGatewaySuccess(operation)
		return
	}
	g.collector.RecordGatewayError(operation, string(err.Code))
}
