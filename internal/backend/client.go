// Package backend はホスティング型バックエンド（認証API + データAPI）の
// HTTPクライアントを提供する。
// 認証とデータ永続化はこのバックエンドに全面的に委譲されており、
// 本パッケージはその呼び出し規約（エンドポイント、ヘッダー、エラー形式）だけを扱う。
// エラーの分類（正規化）は行わない。分類は各ゲートウェイの責務。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// APIError はバックエンドが報告したエラーを表す。
// メッセージに加え、取得できた場合はHTTPステータスとバックエンド固有コード
// （例: データAPIの "42501"、"PGRST116"）を保持する。
// ゲートウェイはこの生エラーを閉じたタクソノミに分類する。
type APIError struct {
	Message string
	Status  int
	Code    string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (status=%d, code=%q): %s", e.Status, e.Code, e.Message)
}

// Client はバックエンドAPIのHTTPクライアント。
// 認証API（/auth/v1）とデータAPI（/rest/v1）の両方をカバーする。
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       *slog.Logger
	recordStatus func(statusCode int)
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLはバックエンドのルートURL（末尾スラッシュは無視される）、
// apiKeyは公開APIキー（全リクエストのapikeyヘッダーに付与される）。
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SetStatusRecorder はバックエンドが返したHTTPステータスコードを記録するフックを設定する。
// メトリクス収集用。未設定の場合は何も記録しない。
func (c *Client) SetStatusRecorder(record func(statusCode int)) {
	c.recordStatus = record
}

// do はバックエンドへのHTTPリクエストを1回実行し、レスポンスボディを返す。
// 4xx/5xxレスポンスは*APIErrorとして返す。
// 通信自体の失敗（接続断など）は*APIErrorではない通常のエラーとして返す。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, accessToken string) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("バックエンドへのリクエストに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("バックエンドへのリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if c.recordStatus != nil {
		c.recordStatus(resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		c.logger.Warn("バックエンドがエラーを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", apiErr.Status),
			slog.String("code", apiErr.Code),
		)
		return nil, apiErr
	}

	return respBody, nil
}

// parseAPIError はバックエンドのエラーレスポンスを*APIErrorに変換する。
// 認証APIは {"msg": ...} または {"error_description": ...}、
// データAPIは {"message": ..., "code": "..."} を返すため、
// 既知のフィールド名を順に探す。
// codeフィールドは認証APIでは数値（HTTPステータスの重複）、
// データAPIでは文字列のため、文字列の場合のみ採用する。
func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message   string          `json:"message"`
		Msg       string          `json:"msg"`
		ErrorName string          `json:"error"`
		ErrorDesc string          `json:"error_description"`
		ErrorCode string          `json:"error_code"`
		Code      json.RawMessage `json:"code"`
	}
	// ボディがJSONでない場合もエラー値は必ず構築する
	_ = json.Unmarshal(body, &payload)

	message := payload.Message
	if message == "" {
		message = payload.Msg
	}
	if message == "" {
		message = payload.ErrorDesc
	}
	if message == "" {
		message = payload.ErrorName
	}
	if message == "" {
		message = http.StatusText(status)
	}

	code := payload.ErrorCode
	if code == "" && len(payload.Code) > 0 {
		var s string
		if err := json.Unmarshal(payload.Code, &s); err == nil {
			code = s
		}
	}

	return &APIError{Message: message, Status: status, Code: code}
}
