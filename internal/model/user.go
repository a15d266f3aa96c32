// Package model はドメインモデルを定義する。
package model

// ロール定数
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュを保持し、平文パスワードは永続化しない。
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	Role         string
}

// IsAdmin は管理者ロールかどうかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
