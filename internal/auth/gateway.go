// Package auth は認証ゲートウェイを提供する。
// ホスティング型バックエンドの認証APIをラップし、バックエンド呼び出し前の
// 最小限の入力チェックと、バックエンドの不揃いなエラー文字列から
// 閉じたエラーコード集合への正規化を行う。
// 呼び出し元にバックエンドの生エラーが届くことはない。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/newsline/internal/backend"
	"github.com/hitoshi/newsline/internal/model"
	"github.com/hitoshi/newsline/internal/result"
)

// minPasswordLength はサインアップ時のパスワード最低文字数。
// サインインは存在チェックのみで、この下限を適用しない（別ルール）。
const minPasswordLength = 6

// BackendAuth は認証バックエンドの呼び出しインターフェース。
// 本番ではbackend.Clientを、テストではスタブを束縛する。
type BackendAuth interface {
	SignUp(ctx context.Context, email, password string) (*backend.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*backend.User, error)
}

// Gateway は認証操作を正規化済みResult形式で提供するゲートウェイ。
type Gateway struct {
	api    BackendAuth
	logger *slog.Logger
}

// NewGateway はGatewayを生成する。
func NewGateway(api BackendAuth, logger *slog.Logger) *Gateway {
	return &Gateway{
		api:    api,
		logger: logger,
	}
}

// ok と fail は型パラメータの繰り返しを避けるためのパッケージ内ヘルパー。
func ok[T any](value T) result.Result[T, *model.AuthError] {
	return result.Ok[T, *model.AuthError](value)
}

func fail[T any](err *model.AuthError) result.Result[T, *model.AuthError] {
	return result.Err[T](err)
}

// SignUp は新規アカウントを作成する。
// バックエンド呼び出し前にメール形式とパスワード文字数を検証する。
// メールアドレスは小文字化と前後空白の除去をしてから送信する。
func (g *Gateway) SignUp(ctx context.Context, email, password string) result.Result[*backend.Session, *model.AuthError] {
	normalized, valid := normalizeEmail(email)
	if !valid {
		return fail[*backend.Session](model.NewAuthError(model.AuthErrInvalidEmail))
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fail[*backend.Session](model.NewAuthError(model.AuthErrInvalidPassword))
	}

	session, err := g.api.SignUp(ctx, normalized, password)
	if err != nil {
		return fail[*backend.Session](normalizeError(err))
	}
	if session == nil || session.User == nil {
		// エラーなしでユーザーが返らないのは想定外のケース
		return fail[*backend.Session](model.NewSignUpIncompleteError())
	}

	g.logger.Info("user signed up", slog.String("user_id", session.User.ID))
	return ok(session)
}

// SignIn はメールアドレスとパスワードでサインインする。
// パスワードは存在チェックのみ（文字数の下限はサインアップ時だけの規則）。
func (g *Gateway) SignIn(ctx context.Context, email, password string) result.Result[*backend.Session, *model.AuthError] {
	normalized, valid := normalizeEmail(email)
	if !valid {
		return fail[*backend.Session](model.NewAuthError(model.AuthErrInvalidEmail))
	}
	if password == "" {
		return fail[*backend.Session](model.NewPasswordRequiredError())
	}

	session, err := g.api.SignInWithPassword(ctx, normalized, password)
	if err != nil {
		return fail[*backend.Session](normalizeError(err))
	}
	if session == nil || session.User == nil {
		return fail[*backend.Session](model.NewSignUpIncompleteError())
	}

	g.logger.Info("user signed in", slog.String("user_id", session.User.ID))
	return ok(session)
}

// SignOut は指定アクセストークンのセッションを破棄する。
func (g *Gateway) SignOut(ctx context.Context, accessToken string) result.Result[struct{}, *model.AuthError] {
	if err := g.api.SignOut(ctx, accessToken); err != nil {
		return fail[struct{}](normalizeError(err))
	}

	g.logger.Info("user signed out")
	return ok(struct{}{})
}

// CurrentUser は現在のユーザーを取得する。
// バックエンドが「セッションなし/未認証」を報告した場合はエラーではなく、
// ユーザーnilの成功として返す（未ログイン状態は正常系）。
// この扱いはCurrentUserに限った規則で、他の操作には適用しない。
func (g *Gateway) CurrentUser(ctx context.Context, accessToken string) result.Result[*backend.User, *model.AuthError] {
	if accessToken == "" {
		return ok[*backend.User](nil)
	}

	user, err := g.api.GetUser(ctx, accessToken)
	if err != nil {
		if isSessionMissing(err) {
			return ok[*backend.User](nil)
		}
		return fail[*backend.User](normalizeError(err))
	}

	return ok(user)
}

// normalizeEmail はメールアドレスを小文字化・前後空白除去し、
// 形式の最小チェック（非空かつ '@' を含む）を行う。
func normalizeEmail(email string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !strings.Contains(normalized, "@") {
		return "", false
	}
	return normalized, true
}

// sessionMissingPhrases は「セッションなし」を示すバックエンドのフレーズ。
var sessionMissingPhrases = []string{"session", "not authenticated"}

// isSessionMissing はエラーが「セッションなし/未認証」を示すかを判定する。
func isSessionMissing(err error) bool {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	message := strings.ToLower(apiErr.Message)
	for _, phrase := range sessionMissingPhrases {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	return false
}

// normalizationRule は生エラーの分類規則。フレーズはすべて小文字で持つ。
type normalizationRule struct {
	code    model.AuthErrorCode
	phrases []string
}

// normalizationRules は上から順に評価される。
// 具体的な分類（パスワード強度、登録済みなど）を汎用の分類より先に並べる。
// どの規則にも一致しない場合はunknown_errorに落ちる。
var normalizationRules = []normalizationRule{
	{model.AuthErrInvalidEmail, []string{"invalid email", "unable to validate email", "email address is invalid"}},
	{model.AuthErrInvalidPassword, []string{"password should be", "password must be", "password is too short", "weak password"}},
	{model.AuthErrEmailTaken, []string{"already registered", "already exists", "duplicate key"}},
	{model.AuthErrUserNotFound, []string{"user not found", "no user found"}},
	{model.AuthErrWrongPassword, []string{"invalid login credentials", "invalid credentials", "invalid grant", "invalid_grant"}},
	{model.AuthErrTooManyRequests, []string{"rate limit", "too many requests"}},
	{model.AuthErrNetwork, []string{"network", "fetch", "connection", "timeout"}},
}

// normalizeError はバックエンドの生エラーを閉じたエラーコード集合に分類する。
// メッセージの照合は大文字小文字を区別しない。HTTP 429はレート制限として扱う。
// 分類は必ず値を返す（panicしない）。生メッセージはユーザーに届かない。
func normalizeError(err error) *model.AuthError {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		// 通信自体の失敗はバックエンド報告のネットワークエラーと同一視する
		return model.NewAuthError(model.AuthErrNetwork)
	}

	message := strings.ToLower(apiErr.Message)
	for _, rule := range normalizationRules {
		if rule.code == model.AuthErrTooManyRequests && apiErr.Status == http.StatusTooManyRequests {
			return model.NewAuthError(rule.code)
		}
		for _, phrase := range rule.phrases {
			if strings.Contains(message, phrase) {
				return model.NewAuthError(rule.code)
			}
		}
	}

	return model.NewAuthError(model.AuthErrUnknown)
}
