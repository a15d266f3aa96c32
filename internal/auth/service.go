// Package auth はユーザー登録・認証とセッション発行のドメインロジックを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/pollman/internal/model"
	"github.com/hitoshi/pollman/internal/repository"
	"github.com/hitoshi/pollman/internal/token"
)

// TokenPair は発行済みのアクセス・リフレッシュトークンの組を表す。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// Service は認証のサービス層。
type Service struct {
	userRepo repository.UserRepository
	tokens   *token.Service
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, tokens *token.Service) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Register は新規ユーザーを登録する。
// メールアドレスが既に存在する場合はEMAIL_TAKENエラーを返す。
// roleが空の場合は"user"として登録する。
func (s *Service) Register(ctx context.Context, email, password, role string) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, nil
}

// Authenticate はメールアドレスとパスワードでユーザーを認証する。
// 未知のメールとパスワード不一致はどちらもnilを返し、区別できない。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

// Login は認証に成功したユーザーにトークンペアを発行する。
// 認証失敗時はINVALID_CREDENTIALSエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	return s.issuePair(user.Email, user.Role)
}

// RefreshSession はリフレッシュトークンから新しいトークンペアを発行する。
// 検証失敗またはsubクレーム欠落の場合はINVALID_TOKENエラーを返す。
func (s *Service) RefreshSession(refreshToken string) (*TokenPair, error) {
	claims := s.tokens.Verify(refreshToken)
	if claims == nil || claims.Subject == "" {
		return nil, model.NewInvalidRefreshTokenError()
	}

	return s.issuePair(claims.Subject, claims.Role)
}

// issuePair はアクセス・リフレッシュトークンの組を発行する。
func (s *Service) issuePair(email, role string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(email, role)
	if err != nil {
		return nil, fmt.Errorf("アクセストークンの発行に失敗しました: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(email, role)
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの発行に失敗しました: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}
