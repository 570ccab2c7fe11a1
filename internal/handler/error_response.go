package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsline/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// codeは閉じたエラーコード集合、messageは固定のユーザー向け文言。
type ErrorResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// authErrorStatus は認証エラーコードからHTTPステータスコードへのマッピング。
var authErrorStatus = map[model.AuthErrorCode]int{
	model.AuthErrInvalidEmail:    http.StatusBadRequest,
	model.AuthErrInvalidPassword: http.StatusBadRequest,
	model.AuthErrEmailTaken:      http.StatusConflict,
	model.AuthErrUserNotFound:    http.StatusNotFound,
	model.AuthErrWrongPassword:   http.StatusUnauthorized,
	model.AuthErrTooManyRequests: http.StatusTooManyRequests,
	model.AuthErrNetwork:         http.StatusBadGateway,
	model.AuthErrUnknown:         http.StatusInternalServerError,
}

// articleErrorStatus は記事エラーコードからHTTPステータスコードへのマッピング。
var articleErrorStatus = map[model.ArticleErrorCode]int{
	model.ArticleErrNotFound:         http.StatusNotFound,
	model.ArticleErrPermissionDenied: http.StatusForbidden,
	model.ArticleErrNetwork:          http.StatusBadGateway,
	model.ArticleErrUnknown:          http.StatusInternalServerError,
}

// writeErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:    code,
		Message: message,
	})
}

// writeAuthError は認証エラーをHTTPステータスにマッピングして書き込む。
func writeAuthError(w http.ResponseWriter, authErr *model.AuthError) {
	status, ok := authErrorStatus[authErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeErrorResponse(w, status, string(authErr.Code), authErr.Message)
}

// writeArticleError は記事エラーをHTTPステータスにマッピングして書き込む。
func writeArticleError(w http.ResponseWriter, artErr *model.ArticleError) {
	status, ok := articleErrorStatus[artErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeErrorResponse(w, status, string(artErr.Code), artErr.Message)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
