// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/pollman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDをuser.IDに設定する。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するpolls・votes（および配下のchoices・votes）はCASCADE削除される。
	// 該当行がない場合はfalseを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// PollRepository は投票データの永続化インターフェース。
type PollRepository interface {
	// CreateWithChoices は投票と選択肢を同一トランザクションで作成する。
	// 採番されたIDをpoll.IDに設定する。途中で失敗した場合、投票も選択肢も残らない。
	CreateWithChoices(ctx context.Context, poll *model.Poll, choiceTexts []string) error

	// FindByID は指定IDの投票を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Poll, error)

	// ListAll はすべての投票を返す（クローズ済みを含む）。
	ListAll(ctx context.Context) ([]*model.Poll, error)

	// Update は投票を部分更新する。updateのnilフィールドは変更しない。
	// 更新後の投票を返す。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, update model.PollUpdate) (*model.Poll, error)

	// CloseExpired はclose_dateが経過した未クローズの投票を一括でクローズし、
	// クローズした件数を返す。単一UPDATE文のため冪等かつ並行安全。
	CloseExpired(ctx context.Context, now time.Time) (int, error)

	// DeleteByID は指定IDの投票を削除する。選択肢・票はCASCADE削除される。
	// 該当行がない場合はfalseを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// ChoiceRepository は選択肢データの永続化インターフェース。
type ChoiceRepository interface {
	// ListByPollID は指定投票の選択肢をID昇順で返す。
	ListByPollID(ctx context.Context, pollID int64) ([]model.Choice, error)

	// ListAll はすべての選択肢を返す（管理者の一覧用）。
	ListAll(ctx context.Context) ([]model.Choice, error)

	// FindByIDsAndPoll は指定IDのうちpollIDに属する選択肢を返す。
	// 返される件数が要求件数より少ない場合、不正なIDが含まれている。
	FindByIDsAndPoll(ctx context.Context, ids []int64, pollID int64) ([]model.Choice, error)
}

// VoteRepository は票データの永続化インターフェース。
type VoteRepository interface {
	// ReplaceForPoll は指定ユーザーの指定投票に対する票を丸ごと置き換える。
	// 既存票の削除と新規票の挿入を同一トランザクションで行い、
	// 部分的な票セットが観測されることはない。
	ReplaceForPoll(ctx context.Context, userID, pollID int64, choiceIDs []int64) error

	// CountByChoiceIDs は選択肢IDごとの得票数を返す。
	// 票のない選択肢はマップに含まれない。
	CountByChoiceIDs(ctx context.Context, choiceIDs []int64) (map[int64]int, error)

	// CountByUserAndPoll は指定ユーザーが指定投票に投じた票数を返す。
	CountByUserAndPoll(ctx context.Context, userID, pollID int64) (int, error)
}
