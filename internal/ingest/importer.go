// Package ingest はRSS/Atomフィードから記事を取り込み、
// 配信バックエンドのデータベースへ保存するインポーターを提供する。
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newsline/internal/metrics"
	"github.com/hitoshi/newsline/internal/model"
)

// ArticleWriter は記事の保存処理のインターフェース。
type ArticleWriter interface {
	Upsert(ctx context.Context, article *model.Article) (bool, error)
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// SummarySanitizer は要約サニタイズのインターフェース。
type SummarySanitizer interface {
	Sanitize(rawHTML string, maxLength int) string
}

// ImportStats は1フィード分のインポート結果。
type ImportStats struct {
	Total    int // フィード内の記事数
	Imported int // 新規に保存された記事数
	Skipped  int // URL重複または必須項目の欠落でスキップされた記事数
}

// Importer はフィードのHTTPフェッチ、パース、記事保存を実行する。
// SSRF検証とHTMLサニタイズを経由しない記事は保存されない。
type Importer struct {
	repo             ArticleWriter
	ssrfGuard        SSRFValidator
	sanitizer        SummarySanitizer
	collector        metrics.MetricsCollector
	logger           *slog.Logger
	timeout          time.Duration
	maxBodySize      int64
	summaryMaxLength int
}

// NewImporter はImporterの新しいインスタンスを生成する。
func NewImporter(
	repo ArticleWriter,
	ssrfGuard SSRFValidator,
	sanitizer SummarySanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	summaryMaxLength int,
) *Importer {
	return &Importer{
		repo:             repo,
		ssrfGuard:        ssrfGuard,
		sanitizer:        sanitizer,
		collector:        collector,
		logger:           logger,
		timeout:          timeout,
		maxBodySize:      maxBodySize,
		summaryMaxLength: summaryMaxLength,
	}
}

// ImportFeed はフィードURLから記事を取り込み、保存結果を返す。
func (i *Importer) ImportFeed(ctx context.Context, feedURL string) (*ImportStats, error) {
	// SSRF検証
	if err := i.ssrfGuard.ValidateURL(feedURL); err != nil {
		i.logger.Error("SSRF検証に失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		i.collector.RecordImportFailure("ssrf")
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	// HTTPリクエスト構築
	client := i.ssrfGuard.NewSafeClient(i.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", "Newsline/1.0 Article Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		i.logger.Error("HTTPリクエストに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		i.collector.RecordImportFailure("fetch")
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		i.logger.Error("フィード取得で想定外のステータスが返されました",
			slog.String("feed_url", feedURL),
			slog.Int("http_status", resp.StatusCode),
		)
		i.collector.RecordImportFailure("http_status")
		return nil, fmt.Errorf("フィード取得に失敗: HTTP %d", resp.StatusCode)
	}

	// レスポンスサイズの上限を適用して読み取る
	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBodySize))
	if err != nil {
		i.collector.RecordImportFailure("read")
		return nil, fmt.Errorf("レスポンス読み取りに失敗: %w", err)
	}

	// gofeedでフィードをパース
	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		i.logger.Error("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		i.collector.RecordImportFailure("parse")
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	stats := &ImportStats{Total: len(parsedFeed.Items)}

	for _, item := range parsedFeed.Items {
		article, ok := i.convertItem(item)
		if !ok {
			stats.Skipped++
			continue
		}

		inserted, err := i.repo.Upsert(ctx, article)
		if err != nil {
			i.logger.Error("記事の保存に失敗しました",
				slog.String("external_url", article.ExternalURL),
				slog.String("error", err.Error()),
			)
			i.collector.RecordImportFailure("upsert")
			return stats, fmt.Errorf("記事の保存に失敗: %w", err)
		}
		if inserted {
			stats.Imported++
		} else {
			stats.Skipped++
		}
	}

	i.collector.RecordArticlesImported(stats.Imported)

	i.logger.Info("フィードのインポートが完了しました",
		slog.String("feed_url", feedURL),
		slog.String("feed_title", parsedFeed.Title),
		slog.Int("items_total", stats.Total),
		slog.Int("items_imported", stats.Imported),
		slog.Int("items_skipped", stats.Skipped),
	)

	return stats, nil
}

// convertItem はgofeedの記事をmodel.Articleに変換する。
// タイトルまたはリンクが欠落した記事は取り込まない。
func (i *Importer) convertItem(item *gofeed.Item) (*model.Article, bool) {
	if item == nil || item.Title == "" || item.Link == "" {
		return nil, false
	}

	// 公開日時: PublishedがなければUpdatedを使い、どちらもなければ取り込み時刻
	createdAt := time.Now().UTC()
	if item.PublishedParsed != nil {
		createdAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		createdAt = item.UpdatedParsed.UTC()
	}

	// カテゴリをタグとして引き継ぐ。未設定の場合も空配列にする。
	tags := item.Categories
	if tags == nil {
		tags = []string{}
	}

	return &model.Article{
		ID:          uuid.NewString(),
		Title:       item.Title,
		Summary:     i.sanitizer.Sanitize(item.Description, i.summaryMaxLength),
		Tags:        tags,
		ExternalURL: item.Link,
		CreatedAt:   createdAt.Format(time.RFC3339),
	}, true
}
