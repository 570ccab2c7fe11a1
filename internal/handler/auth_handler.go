// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/newsline/internal/backend"
	"github.com/hitoshi/newsline/internal/model"
	"github.com/hitoshi/newsline/internal/result"
)

// AuthGatewayInterface は認証ハンドラーが必要とするゲートウェイインターフェース。
type AuthGatewayInterface interface {
	// SignUp は新規ユーザーを登録する。
	SignUp(ctx context.Context, email, password string) result.Result[*backend.Session, *model.AuthError]
	// SignIn はメールアドレスとパスワードでサインインする。
	SignIn(ctx context.Context, email, password string) result.Result[*backend.Session, *model.AuthError]
	// SignOut はアクセストークンのセッションを破棄する。
	SignOut(ctx context.Context, accessToken string) result.Result[struct{}, *model.AuthError]
	// CurrentUser はアクセストークンに紐づくユーザーを返す。セッションがない場合はnilを返す。
	CurrentUser(ctx context.Context, accessToken string) result.Result[*backend.User, *model.AuthError]
}

// AuthHandler は認証APIのHTTPハンドラー。
type AuthHandler struct {
	gateway AuthGatewayInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(gateway AuthGatewayInterface) *AuthHandler {
	return &AuthHandler{gateway: gateway}
}

// --- リクエスト・レスポンス型 ---

// credentialsRequest はサインアップ・サインインリクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse はサインアップ・サインイン成功時のレスポンス。
type sessionResponse struct {
	AccessToken  string        `json:"accessToken,omitempty"`
	TokenType    string        `json:"tokenType,omitempty"`
	ExpiresIn    int           `json:"expiresIn,omitempty"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	User         *userResponse `json:"user"`
}

// userResponse はユーザー情報のレスポンス。
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func toUserResponse(u *backend.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toSessionResponse(s *backend.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		RefreshToken: s.RefreshToken,
		User:         toUserResponse(s.User),
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーがない場合やBearer形式でない場合は空文字列を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// decodeCredentials はリクエストボディをデコードする。
// 不正なJSONはゲートウェイに渡さず400で拒否する。
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "リクエストの形式が正しくありません。")
		return credentialsRequest{}, false
	}
	return req, true
}

// SignUp は新規ユーザーを登録する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	res := h.gateway.SignUp(r.Context(), req.Email, req.Password)
	if res.IsErr() {
		writeAuthError(w, res.Err())
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(res.Value()))
}

// SignIn はメールアドレスとパスワードでサインインする。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	res := h.gateway.SignIn(r.Context(), req.Email, req.Password)
	if res.IsErr() {
		writeAuthError(w, res.Err())
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(res.Value()))
}

// SignOut はセッションを破棄する。トークンなしの呼び出しも成功として扱う。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	res := h.gateway.SignOut(r.Context(), bearerToken(r))
	if res.IsErr() {
		writeAuthError(w, res.Err())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のユーザー情報を返す。
// セッションがない場合はエラーではなくuser: nullを返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	res := h.gateway.CurrentUser(r.Context(), bearerToken(r))
	if res.IsErr() {
		writeAuthError(w, res.Err())
		return
	}

	writeJSON(w, http.StatusOK, map[string]*userResponse{
		"user": toUserResponse(res.Value()),
	})
}
