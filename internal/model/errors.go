// Package model はドメインモデルを定義する。
package model

import "fmt"

// AuthErrorCode は認証ゲートウェイの閉じたエラーコード集合。
// バックエンドの生エラー文字列はこのいずれかに必ず分類される。
type AuthErrorCode string

// 認証エラーコード
const (
	AuthErrInvalidEmail    AuthErrorCode = "invalid_email"
	AuthErrInvalidPassword AuthErrorCode = "invalid_password"
	AuthErrEmailTaken      AuthErrorCode = "email_taken"
	AuthErrUserNotFound    AuthErrorCode = "user_not_found"
	AuthErrWrongPassword   AuthErrorCode = "wrong_password"
	AuthErrTooManyRequests AuthErrorCode = "too_many_requests"
	AuthErrNetwork         AuthErrorCode = "network_error"
	AuthErrUnknown         AuthErrorCode = "unknown_error"
)

// AuthError は認証操作の正規化済みエラーを表す。
// Messageはコードごとに固定のユーザー向け文言であり、
// バックエンドの生メッセージを流用しない（内部情報の漏洩防止）。
type AuthError struct {
	Code    AuthErrorCode `json:"code"`
	Message string        `json:"message"`
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// authErrorMessages はコードごとの固定ユーザー向け文言。
var authErrorMessages = map[AuthErrorCode]string{
	AuthErrInvalidEmail:    "有効なメールアドレスを入力してください。",
	AuthErrInvalidPassword: "パスワードは6文字以上で入力してください。",
	AuthErrEmailTaken:      "このメールアドレスは既に登録されています。",
	AuthErrUserNotFound:    "ユーザーが見つかりません。",
	AuthErrWrongPassword:   "メールアドレスまたはパスワードが正しくありません。",
	AuthErrTooManyRequests: "リクエストが多すぎます。しばらく待ってから再度お試しください。",
	AuthErrNetwork:         "ネットワークエラーが発生しました。接続を確認してください。",
	AuthErrUnknown:         "エラーが発生しました。しばらく待ってから再度お試しください。",
}

// NewAuthError は指定コードの固定文言を持つAuthErrorを生成する。
// 未知のコードはAuthErrUnknownとして扱う。
func NewAuthError(code AuthErrorCode) *AuthError {
	msg, ok := authErrorMessages[code]
	if !ok {
		code = AuthErrUnknown
		msg = authErrorMessages[AuthErrUnknown]
	}
	return &AuthError{Code: code, Message: msg}
}

// NewPasswordRequiredError はサインイン時のパスワード未入力エラーを生成する。
// サインアップの文字数ルールとはコードを共有するが文言が異なる。
func NewPasswordRequiredError() *AuthError {
	return &AuthError{
		Code:    AuthErrInvalidPassword,
		Message: "パスワードを入力してください。",
	}
}

// NewSignUpIncompleteError はアカウント作成に成功したにもかかわらず
// バックエンドがユーザー情報を返さなかった場合の防御的フォールバックを生成する。
func NewSignUpIncompleteError() *AuthError {
	return &AuthError{
		Code:    AuthErrUnknown,
		Message: "アカウントは作成されましたが、ユーザー情報を取得できませんでした。",
	}
}

// ArticleErrorCode は記事ゲートウェイの閉じたエラーコード集合。
type ArticleErrorCode string

// 記事エラーコード
const (
	ArticleErrNotFound         ArticleErrorCode = "not_found"
	ArticleErrPermissionDenied ArticleErrorCode = "permission_denied"
	ArticleErrNetwork          ArticleErrorCode = "network_error"
	ArticleErrUnknown          ArticleErrorCode = "unknown_error"
)

// ArticleError は記事取得操作の正規化済みエラーを表す。
type ArticleError struct {
	Code    ArticleErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Error はerrorインターフェースを実装する。
func (e *ArticleError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// articleErrorMessages はコードごとの固定ユーザー向け文言。
var articleErrorMessages = map[ArticleErrorCode]string{
	ArticleErrNotFound:         "記事が見つかりません。",
	ArticleErrPermissionDenied: "この記事を閲覧する権限がありません。",
	ArticleErrNetwork:          "ネットワークエラーが発生しました。接続を確認してください。",
	ArticleErrUnknown:          "記事の取得中にエラーが発生しました。",
}

// NewArticleError は指定コードの固定文言を持つArticleErrorを生成する。
// 未知のコードはArticleErrUnknownとして扱う。
func NewArticleError(code ArticleErrorCode) *ArticleError {
	msg, ok := articleErrorMessages[code]
	if !ok {
		code = ArticleErrUnknown
		msg = articleErrorMessages[ArticleErrUnknown]
	}
	return &ArticleError{Code: code, Message: msg}
}
