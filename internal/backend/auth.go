package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// User は認証バックエンドが管理するユーザーを表す。
// ゲートウェイはフィールドの中身を解釈せず、存在確認だけを行って
// そのまま呼び出し元に受け渡す。
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// Session はサインアップ/サインイン成功時に認証バックエンドが返すペイロード。
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// credentials はメールアドレス+パスワードの認証リクエストボディ。
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp は新規アカウントを作成する。
// メール確認が有効なバックエンドではトークンなしでユーザーオブジェクトだけが
// 直接返るため、その形式もSessionに詰め替えて返す。
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, credentials{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("サインアップレスポンスのパースに失敗しました: %w", err)
	}

	if session.User == nil {
		var user User
		if err := json.Unmarshal(raw, &user); err == nil && user.ID != "" {
			session.User = &user
		}
	}

	return &session, nil
}

// SignInWithPassword はメールアドレスとパスワードでサインインし、セッションを返す。
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	query := url.Values{}
	query.Set("grant_type", "password")

	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, credentials{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("サインインレスポンスのパースに失敗しました: %w", err)
	}

	return &session, nil
}

// SignOut は指定アクセストークンのセッションを破棄する。
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, accessToken)
	return err
}

// GetUser は指定アクセストークンの現在のユーザーを取得する。
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	raw, err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("ユーザーレスポンスのパースに失敗しました: %w", err)
	}

	return &user, nil
}
