// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, poll, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePollNotFound      = "POLL_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodePollClosed        = "POLL_CLOSED"
	ErrCodePollExpired       = "POLL_EXPIRED"
	ErrCodeInvalidChoiceIDs  = "INVALID_CHOICE_IDS"
	ErrCodeSingleChoiceOnly  = "SINGLE_CHOICE_ONLY"
	ErrCodeEmptyChoices      = "EMPTY_CHOICES"
	ErrCodeEmailTaken        = "EMAIL_TAKEN"
	ErrCodeInvalidCloseDate  = "INVALID_CLOSE_DATE"
	ErrCodeNotPollCreator    = "NOT_POLL_CREATOR"
	ErrCodeInvalidCredential = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken      = "INVALID_TOKEN"
	ErrCodeAdminRequired     = "ADMIN_REQUIRED"
)

// NewPollNotFoundError は投票未検出エラーを生成する。
func NewPollNotFoundError(pollID int64) *APIError {
	return &APIError{
		Code:     ErrCodePollNotFound,
		Message:  "Poll not found",
		Category: "poll",
		Action:   fmt.Sprintf("Check that poll %d exists.", pollID),
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Log in again with a registered account.",
	}
}

// NewPollClosedError は閉鎖済み投票への操作エラーを生成する。
func NewPollClosedError() *APIError {
	return &APIError{
		Code:     ErrCodePollClosed,
		Message:  "Poll is closed",
		Category: "poll",
		Action:   "Voting has ended for this poll.",
	}
}

// NewPollAlreadyClosedError は閉鎖済み投票の再クローズエラーを生成する。
func NewPollAlreadyClosedError() *APIError {
	return &APIError{
		Code:     ErrCodePollClosed,
		Message:  "Poll already closed",
		Category: "poll",
		Action:   "This poll has already been closed.",
	}
}

// NewPollExpiredError は締切超過エラーを生成する。
// スイープ前でもclose_dateを過ぎた投票は受け付けない。
func NewPollExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodePollExpired,
		Message:  "Poll has expired",
		Category: "poll",
		Action:   "The close date of this poll has passed.",
	}
}

// NewInvalidChoiceIDsError は不正な選択肢ID指定エラーを生成する。
func NewInvalidChoiceIDsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidChoiceIDs,
		Message:  "Invalid choice IDs",
		Category: "validation",
		Action:   "Submit only choice IDs that belong to this poll, without duplicates.",
	}
}

// NewSingleChoiceOnlyError は単一選択投票への複数選択エラーを生成する。
func NewSingleChoiceOnlyError() *APIError {
	return &APIError{
		Code:     ErrCodeSingleChoiceOnly,
		Message:  "Single-choice poll cannot have multiple selections",
		Category: "validation",
		Action:   "Submit exactly one choice ID for this poll.",
	}
}

// NewEmptyChoicesError は選択肢のない投票作成エラーを生成する。
func NewEmptyChoicesError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyChoices,
		Message:  "Poll must have at least one non-empty choice",
		Category: "validation",
		Action:   "Provide one or more non-empty choice texts.",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "Email already registered",
		Category: "auth",
		Action:   "Log in with this email or register a different one.",
	}
}

// NewInvalidCloseDateError は締切日時の書式エラーを生成する。
func NewInvalidCloseDateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCloseDate,
		Message:  "Invalid close date format",
		Category: "validation",
		Action:   "Use an ISO-8601 timestamp, e.g. 2025-05-10T12:00:00Z.",
	}
}

// NewNotPollCreatorError は作成者以外によるクローズ操作エラーを生成する。
func NewNotPollCreatorError() *APIError {
	return &APIError{
		Code:     ErrCodeNotPollCreator,
		Message:  "Only the creator of the poll can close it",
		Category: "poll",
		Action:   "Ask the poll creator to close it.",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// 未知のメールとパスワード不一致は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "Invalid credentials",
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
// 署名不正と期限切れは区別しない。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid token",
		Category: "auth",
		Action:   "Log in again to obtain a new token.",
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークン検証失敗エラーを生成する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid refresh token",
		Category: "auth",
		Action:   "Log in again to obtain a new token pair.",
	}
}

// NewAdminRequiredError は管理者権限不足エラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "Admin access required",
		Category: "auth",
		Action:   "This operation requires an admin account.",
	}
}
