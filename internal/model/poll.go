// Package model はドメインモデルを定義する。
package model

import "time"

// Poll は選択肢付きの投票（アンケート）を表す。
// IsClosedフラグが立っているか、CloseDateが過ぎている場合は投票を受け付けない。
type Poll struct {
	ID               int64
	Title            string
	Description      string
	CreatorID        int64
	CreationDate     time.Time
	IsClosed         bool
	CloseDate        *time.Time // nilの場合は締切なし
	IsMultipleChoice bool
}

// VotingClosed は投票受付が終了しているかを返す。
// IsClosedフラグだけでなくCloseDate経過も閉鎖とみなす。
// スイープ処理がフラグを立てる前でも、締切を過ぎた投票は受け付けない。
func (p *Poll) VotingClosed(now time.Time) bool {
	if p.IsClosed {
		return true
	}
	if p.CloseDate != nil && !p.CloseDate.UTC().After(now.UTC()) {
		return true
	}
	return false
}

// Choice は投票の選択肢を表す。ライフサイクルは所属Pollと一体で、
// 個別の更新・削除はサポートしない。
type Choice struct {
	ID     int64
	Text   string
	PollID int64
}

// Vote はユーザーと選択肢の対応（1票）を表す。
// 同一投票への再投票は、そのユーザーの既存票を丸ごと置き換える。
type Vote struct {
	ID        int64
	UserID    int64
	ChoiceID  int64
	CreatedAt time.Time
}

// PollSummary は一覧表示用の投票サマリを表す。
// Resultsは選択肢テキストから得票数へのマップで、開いている投票では
// すべて0になる（投票中の途中経過は意図的に隠す）。
type PollSummary struct {
	ID          int64
	Title       string
	Description string
	CloseDate   *time.Time
	IsClosed    bool
	Results     map[string]int
}

// PollDetails は投票の詳細（選択肢一覧付き）を表す。
type PollDetails struct {
	ID               int64
	Title            string
	Description      string
	IsMultipleChoice bool
	CloseDate        *time.Time
	IsClosed         bool
	Choices          []Choice
}

// PollUpdate は投票の部分更新を表す。nilのフィールドは変更しない。
type PollUpdate struct {
	Title       *string
	Description *string
	IsClosed    *bool
	CloseDate   *time.Time
}
