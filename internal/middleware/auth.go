// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hitoshi/pollman/internal/model"
	"github.com/hitoshi/pollman/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みアイデンティティを
// 格納するためのキー。
var identityContextKey = contextKey("identity")

// Identity は検証済みトークンから得た呼び出し元の身元を表す。
type Identity struct {
	Email string
	Role  string
}

// ErrNoIdentity はコンテキストに認証済みアイデンティティがないことを示す。
var ErrNoIdentity = errors.New("no authenticated identity in context")

// TokenVerifier はトークン検証に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) *token.Claims
}

// NewAuthMiddleware はベアラートークンを検証し、認証済みアイデンティティを
// リクエストコンテキストに注入するミドルウェアを返す。
// Authorization: Bearerヘッダーを正とし、旧リビジョンとの互換のため
// tokenクエリパラメータも受け付ける。
// 検証失敗の理由（署名・期限切れ・構造）は区別せず一様に401を返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			claims := verifier.Verify(tokenString)
			if claims == nil || claims.Subject == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			identity := Identity{Email: claims.Subject, Role: claims.Role}
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAdminMiddleware は認証済みロールがadminでない呼び出しを
// 403で拒否するミドルウェアを返す。NewAuthMiddlewareの後に配置すること。
func NewRequireAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}
			if identity.Role != model.RoleAdmin {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAdminRequiredError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みアイデンティティを取得する。
func IdentityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return identity, nil
}

// ContextWithIdentity はテスト用にアイデンティティを設定したコンテキストを返す。
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// ヘッダーがない、または形式が違う場合は空文字列を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
