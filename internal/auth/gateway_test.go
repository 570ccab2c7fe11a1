package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/hitoshi/newsline/internal/backend"
	"github.com/hitoshi/newsline/internal/model"
)

// --- モック定義 ---

type mockBackendAuth struct {
	signUpFn  func(ctx context.Context, email, password string) (*backend.Session, error)
	signInFn  func(ctx context.Context, email, password string) (*backend.Session, error)
	signOutFn func(ctx context.Context, accessToken string) error
	getUserFn func(ctx context.Context, accessToken string) (*backend.User, error)

	signUpCalled  bool
	signInCalled  bool
	getUserCalled bool
}

func (m *mockBackendAuth) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	m.signUpCalled = true
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockBackendAuth) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	m.signInCalled = true
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockBackendAuth) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

func (m *mockBackendAuth) GetUser(ctx context.Context, accessToken string) (*backend.User, error) {
	m.getUserCalled = true
	if m.getUserFn != nil {
		return m.getUserFn(ctx, accessToken)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ BackendAuth = (*mockBackendAuth)(nil)

func newTestGateway(api BackendAuth) *Gateway {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewGateway(api, logger)
}

func validSession() *backend.Session {
	return &backend.Session{
		AccessToken: "token-1",
		User:        &backend.User{ID: "user-1", Email: "test@example.com"},
	}
}

// --- サインアップ ---

func TestSignUp_EmptyEmail_InvalidEmailWithoutBackendCall(t *testing.T) {
	api := &mockBackendAuth{}
	g := newTestGateway(api)

	res := g.SignUp(context.Background(), "", "secret123")

	if !res.IsErr() {
		t.Fatal("空メールアドレスは失敗であるべき")
	}
	if res.Err().Code != model.AuthErrInvalidEmail {
		t.Errorf("Code = %s, want %s", res.Err().Code, model.AuthErrInvalidEmail)
	}
	if api.signUpCalled {
		t.Error("事前チェック失敗時にバックエンドを呼んではならない")
	}
}

func TestSignUp_EmailWithoutAtSign_InvalidEmail(t *testing.T) {
	api := &mockBackendAuth{}
	g := newTestGateway(api)

	res := g.SignUp(context.Background(), "not-an-email", "secret123")

	if res.Err() == nil || res.Err().Code != model.AuthErrInvalidEmail {
		t.Errorf("'@'を含まないメールアドレスは invalid_email であるべき: got %v", res.Err())
	}
	if api.signUpCalled {
		t.Error("事前チェック失敗時にバックエンドを呼んではならない")
	}
}

func TestSignUp_ShortPassword_InvalidPasswordWithoutBackendCall(t *testing.T) {
	api := &mockBackendAuth{}
	g := newTestGateway(api)

	res := g.SignUp(context.Background(), "test@example.com", "12345")

	if res.Err() == nil || res.Err().Code != model.AuthErrInvalidPassword {
		t.Fatalf("6文字未満のパスワードは invalid_password であるべき: got %v", res.Err())
	}
	// サインアップ側は文字数ルールの文言
	if res.Err().Message != model.NewAuthError(model.AuthErrInvalidPassword).Message {
		t.Errorf("文言 = %q, want 文字数ルールの固定文言", res.Err().Message)
	}
	if api.signUpCalled {
		t.Error("事前チェック失敗時にバックエンドを呼んではならない")
	}
}

func TestSignUp_EmailIsLowercasedAndTrimmed(t *testing.T) {
	var receivedEmail string
	api := &mockBackendAuth{
		signUpFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
			receivedEmail = email
			return validSession(), nil
		},
	}
	g := newTestGateway(api)

	res := g.SignUp(context.Background(), "  TEST@EXAMPLE.COM  ", "secret123")

	if !res.IsOk() {
		t.Fatalf("サインアップが失敗した: %v", res.Err())
	}
	if receivedEmail != "test@example.com" {
		t.Errorf("バックエンドへ渡るメールアドレス = %q, want %q", receivedEmail, "test@example.com")
	}
}

func TestSignUp_Success_ReturnsSession(t *testing.T) {
	api := &mockBackendAuth{
		signUpFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
			return validSession(), nil
		},
	}
	g := newTestGateway(api)

	res := g.SignUp(context.Background(), "test@example.com", "secret123")

	if !res.IsOk() {
		t.Fatalf("サインアップが失敗した: %v", res.Err())
	}
	if res.Err() != nil {
		t.Error("成功時にエラースロットが埋まってはならない")
	}
	if res.Value().User.ID != "user-1" {
		t.Errorf("User.ID = %q, want user-1", res.Value().User.ID)
	}
}

func TestSignUp_NoUserDespiteNoError_UnknownError(t *testing.T) {
	api := &mockBackendAuth{
		signUpFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
			return &backend.Session{AccessToken: "t"}, nil
		},
	}
	g := newTestGateway(api)

	res := g.SignUp(context.Background(), "test@example.com", "secret123")

	if res.Err() == nil || res.Err().Code != model.AuthErrUnknown {
		t.Fatalf("ユーザーなしの成功レスポンスは unknown_error であるべき: got %v", res.Err())
	}
	if res.Err().Message != model.NewSignUpIncompleteError().Message {
		t.Errorf("文言 = %q, want サインアップ不完全の固定文言", res.Err().Message)
	}
}

func TestSignUp_BackendErrorNormalization(t *testing.T) {
	tests := []struct {
		name     string
		apiErr   *backend.APIError
		wantCode model.AuthErrorCode
	}{
		{
			name:     "登録済みメールアドレス",
			apiErr:   &backend.APIError{Message: "User already registered", Status: 422},
			wantCode: model.AuthErrEmailTaken,
		},
		{
			name:     "DBの一意制約違反",
			apiErr:   &backend.APIError{Message: "duplicate key value violates unique constraint", Status: 500},
			wantCode: model.AuthErrEmailTaken,
		},
		{
			name:     "メールアドレス検証失敗",
			apiErr:   &backend.APIError{Message: "Unable to validate email address: invalid format", Status: 400},
			wantCode: model.AuthErrInvalidEmail,
		},
		{
			name:     "パスワード強度不足",
			apiErr:   &backend.APIError{Message: "Password should be at least 6 characters", Status: 422},
			wantCode: model.AuthErrInvalidPassword,
		},
		{
			name:     "レート制限（フレーズ）",
			apiErr:   &backend.APIError{Message: "Rate limit exceeded", Status: 429},
			wantCode: model.AuthErrTooManyRequests,
		},
		{
			name:     "レート制限（ステータスのみ）",
			apiErr:   &backend.APIError{Message: "over quota", Status: http.StatusTooManyRequests},
			wantCode: model.AuthErrTooManyRequests,
		},
		{
			name:     "未知のメッセージ",
			apiErr:   &backend.APIError{Message: "unexpected internal failure xyz", Status: 500},
			wantCode: model.AuthErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockBackendAuth{
				signUpFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
					return nil, tt.apiErr
				},
			}
			g := newTestGateway(api)

			res := g.SignUp(context.Background(), "test@example.com", "secret123")

			if res.Err() == nil {
				t.Fatal("バックエンドエラーは失敗であるべき")
			}
			if res.Err().Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", res.Err().Code, tt.wantCode)
			}
			// 生のバックエンドメッセージをユーザーに露出しない
			if res.Err().Message == tt.apiErr.Message {
				t.Error("バックエンドの生メッセージを文言に流用してはならない")
			}
		})
	}
}

// --- サインイン ---

func TestSignIn_EmptyPassword_RequiredMessageWithoutBackendCall(t *testing.T) {
	api := &mockBackendAuth{}
	g := newTestGateway(api)

	res := g.SignIn(context.Background(), "test@example.com", "")

	if res.Err() == nil || res.Err().Code != model.AuthErrInvalidPassword {
		t.Fatalf("空パスワードは invalid_password であるべき: got %v", res.Err())
	}
	// サインインは「入力してください」の文言（サインアップの文字数ルールとは別）
	if res.Err().Message != model.NewPasswordRequiredError().Message {
		t.Errorf("文言 = %q, want パスワード未入力の固定文言", res.Err().Message)
	}
	if api.signInCalled {
		t.Error("事前チェック失敗時にバックエンドを呼んではならない")
	}
}

func TestSignIn_ShortButPresentPassword_CallsBackend(t *testing.T) {
	// サインインの事前チェックは存在のみ。6文字未満でもバックエンドに委ねる
	api := &mockBackendAuth{
		signInFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
			return validSession(), nil
		},
	}
	g := newTestGateway(api)

	res := g.SignIn(context.Background(), "test@example.com", "abc")

	if !res.IsOk() {
		t.Fatalf("サインインが失敗した: %v", res.Err())
	}
	if !api.signInCalled {
		t.Error("存在するパスワードはバックエンドに渡されるべき")
	}
}

func TestSignIn_InvalidCredentials_WrongPassword(t *testing.T) {
	api := &mockBackendAuth{
		signInFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
			return nil, &backend.APIError{Message: "Invalid login credentials", Status: 400}
		},
	}
	g := newTestGateway(api)

	res := g.SignIn(context.Background(), "test@example.com", "wrongpw")

	if res.Err() == nil || res.Err().Code != model.AuthErrWrongPassword {
		t.Errorf("認証情報エラーは wrong_password であるべき: got %v", res.Err())
	}
}

func TestSignIn_EmailIsLowercasedAndTrimmed(t *testing.T) {
	var receivedEmail string
	api := &mockBackendAuth{
		signInFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
			receivedEmail = email
			return validSession(), nil
		},
	}
	g := newTestGateway(api)

	g.SignIn(context.Background(), " User@Example.COM ", "pw")

	if receivedEmail != "user@example.com" {
		t.Errorf("バックエンドへ渡るメールアドレス = %q, want user@example.com", receivedEmail)
	}
}

func TestSignIn_TransportError_NetworkError(t *testing.T) {
	api := &mockBackendAuth{
		signInFn: func(ctx context.Context, email, password string) (*backend.Session, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	g := newTestGateway(api)

	res := g.SignIn(context.Background(), "test@example.com", "pw")

	if res.Err() == nil || res.Err().Code != model.AuthErrNetwork {
		t.Errorf("通信失敗は network_error であるべき: got %v", res.Err())
	}
}

// --- サインアウト ---

func TestSignOut_Success(t *testing.T) {
	var receivedToken string
	api := &mockBackendAuth{
		signOutFn: func(ctx context.Context, accessToken string) error {
			receivedToken = accessToken
			return nil
		},
	}
	g := newTestGateway(api)

	res := g.SignOut(context.Background(), "token-x")

	if !res.IsOk() {
		t.Fatalf("サインアウトが失敗した: %v", res.Err())
	}
	if receivedToken != "token-x" {
		t.Errorf("トークン = %q, want token-x", receivedToken)
	}
}

func TestSignOut_BackendError_Normalized(t *testing.T) {
	api := &mockBackendAuth{
		signOutFn: func(ctx context.Context, accessToken string) error {
			return &backend.APIError{Message: "Network request failed", Status: 0}
		},
	}
	g := newTestGateway(api)

	res := g.SignOut(context.Background(), "token-x")

	if res.Err() == nil || res.Err().Code != model.AuthErrNetwork {
		t.Errorf("Code = %v, want %s", res.Err(), model.AuthErrNetwork)
	}
}

// --- 現在のユーザー取得 ---

func TestCurrentUser_SessionMissing_SucceedsWithNilUser(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"セッションなし", "Auth session missing!"},
		{"未認証", "User not authenticated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockBackendAuth{
				getUserFn: func(ctx context.Context, accessToken string) (*backend.User, error) {
					return nil, &backend.APIError{Message: tt.message, Status: 401}
				},
			}
			g := newTestGateway(api)

			res := g.CurrentUser(context.Background(), "token-x")

			if !res.IsOk() {
				t.Fatalf("セッションなしは成功（ユーザーnil）であるべき: %v", res.Err())
			}
			if res.Value() != nil {
				t.Errorf("ユーザー = %+v, want nil", res.Value())
			}
		})
	}
}

func TestCurrentUser_EmptyToken_SucceedsWithNilUserWithoutBackendCall(t *testing.T) {
	api := &mockBackendAuth{}
	g := newTestGateway(api)

	res := g.CurrentUser(context.Background(), "")

	if !res.IsOk() || res.Value() != nil {
		t.Errorf("トークンなしは成功（ユーザーnil）であるべき: ok=%v user=%v", res.IsOk(), res.Value())
	}
	if api.getUserCalled {
		t.Error("トークンなしでバックエンドを呼んではならない")
	}
}

func TestCurrentUser_NetworkFailure_NetworkError(t *testing.T) {
	api := &mockBackendAuth{
		getUserFn: func(ctx context.Context, accessToken string) (*backend.User, error) {
			return nil, &backend.APIError{Message: "Network request failed"}
		},
	}
	g := newTestGateway(api)

	res := g.CurrentUser(context.Background(), "token-x")

	if res.Err() == nil || res.Err().Code != model.AuthErrNetwork {
		t.Errorf("Code = %v, want %s", res.Err(), model.AuthErrNetwork)
	}
}

func TestCurrentUser_Success_PassesUserThrough(t *testing.T) {
	api := &mockBackendAuth{
		getUserFn: func(ctx context.Context, accessToken string) (*backend.User, error) {
			return &backend.User{ID: "user-9", Email: "me@example.com"}, nil
		},
	}
	g := newTestGateway(api)

	res := g.CurrentUser(context.Background(), "token-x")

	if !res.IsOk() {
		t.Fatalf("取得が失敗した: %v", res.Err())
	}
	if res.Value().ID != "user-9" {
		t.Errorf("User.ID = %q, want user-9", res.Value().ID)
	}
}

// --- 正規化の網羅性 ---

func TestNormalizeError_AlwaysReturnsClosedSetCode(t *testing.T) {
	known := map[model.AuthErrorCode]bool{
		model.AuthErrInvalidEmail:    true,
		model.AuthErrInvalidPassword: true,
		model.AuthErrEmailTaken:      true,
		model.AuthErrUserNotFound:    true,
		model.AuthErrWrongPassword:   true,
		model.AuthErrTooManyRequests: true,
		model.AuthErrNetwork:         true,
		model.AuthErrUnknown:         true,
	}

	inputs := []error{
		&backend.APIError{Message: ""},
		&backend.APIError{Message: "User not found", Status: 404},
		&backend.APIError{Message: "FETCH FAILED"},
		&backend.APIError{Message: "completely unclassifiable"},
		errors.New("plain error"),
	}

	for _, input := range inputs {
		e := normalizeError(input)
		if e == nil {
			t.Fatalf("normalizeError(%v) = nil", input)
		}
		if !known[e.Code] {
			t.Errorf("normalizeError(%v) が閉集合外のコードを返した: %s", input, e.Code)
		}
	}
}

func TestNormalizeError_CaseInsensitive(t *testing.T) {
	e := normalizeError(&backend.APIError{Message: "USER ALREADY REGISTERED"})
	if e.Code != model.AuthErrEmailTaken {
		t.Errorf("照合は大文字小文字を区別しないべき: got %s", e.Code)
	}
}
