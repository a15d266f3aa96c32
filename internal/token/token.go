// Package token は署名付きアクセストークン・リフレッシュトークンの
// 発行と検証を提供する。
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims は発行するトークンのクレームを表す。
// subにユーザーのメールアドレス、roleにロールを載せる。
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service はJWTの発行と検証を行う。
// 署名鍵は起動時の設定から一度だけ注入され、以降は不変。
type Service struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService はServiceを生成する。
// accessTTL・refreshTTLがゼロの場合はデフォルト（15分・7日）を使用する。
func NewService(secretKey string, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken はアクセストークンを発行する。
// expは現在時刻 + アクセスTTL（UTC）。
func (s *Service) IssueAccessToken(subjectEmail, role string) (string, error) {
	return s.issue(subjectEmail, role, s.accessTTL)
}

// IssueRefreshToken はリフレッシュトークンを発行する。
// expは現在時刻 + リフレッシュTTL（UTC）。
func (s *Service) IssueRefreshToken(subjectEmail, role string) (string, error) {
	return s.issue(subjectEmail, role, s.refreshTTL)
}

// issue はHS256署名のトークンを生成する。jtiで発行ごとに一意になる。
func (s *Service) issue(subjectEmail, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectEmail,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secretKey)
}

// Verify はトークンを検証し、クレームを返す。
// 署名不正・期限切れ・構造不正のいずれもnilを返し、原因は区別しない。
// 呼び出し側にエラーを投げることはない。
func (s *Service) Verify(tokenString string) *Claims {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secretKey, nil
	})
	if err != nil || !t.Valid {
		return nil
	}
	return claims
}
