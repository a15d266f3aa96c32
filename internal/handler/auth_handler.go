// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/pollman/internal/auth"
	"github.com/hitoshi/pollman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録する。roleが空の場合は"user"になる。
	Register(ctx context.Context, email, password, role string) (*model.User, error)
	// Login は資格情報を検証しトークンペアを発行する。
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	// RefreshSession はリフレッシュトークンから新しいトークンペアを発行する。
	RefreshSession(refreshToken string) (*auth.TokenPair, error)
}

// AuthMetrics は認証ハンドラーが記録するメトリクスのインターフェース。
type AuthMetrics interface {
	RecordUserRegistered()
	RecordLoginFailure()
}

// AuthHandler はトークン認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnil可。
func NewAuthHandler(service AuthServiceInterface, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest はトークン更新リクエストのボディ。
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse はトークンペアのAPIレスポンス。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// messageResponse は単一メッセージのAPIレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// Register は新規ユーザー登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	if _, err := h.service.Register(r.Context(), req.Email, req.Password, model.RoleUser); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUserRegistered()
	}

	writeJSONResponse(w, http.StatusOK, messageResponse{Message: "User registered successfully"})
}

// Login は資格情報を検証しトークンペアを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *model.APIError
		if h.metrics != nil && errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredential {
			h.metrics.RecordLoginFailure()
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

// Refresh はリフレッシュトークンから新しいトークンペアを発行する。
// POST /auth/token/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	pair, err := h.service.RefreshSession(req.RefreshToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

// Logout はログアウトを処理する。トークンはステートレスなので
// サーバー側の状態はなく、クライアントがトークンを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}
