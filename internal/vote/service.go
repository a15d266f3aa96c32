// Package vote は投票の受付と集計のドメインロジックを提供する。
package vote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/pollman/internal/model"
	"github.com/hitoshi/pollman/internal/repository"
)

// Service は投票受付のサービス層。
type Service struct {
	polls   repository.PollRepository
	choices repository.ChoiceRepository
	votes   repository.VoteRepository
	users   repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	polls repository.PollRepository,
	choices repository.ChoiceRepository,
	votes repository.VoteRepository,
	users repository.UserRepository,
) *Service {
	return &Service{
		polls:   polls,
		choices: choices,
		votes:   votes,
		users:   users,
	}
}

// Vote はユーザーの票を記録する。
// 同一ユーザーの再投票は既存票を丸ごと置き換える（追記ではない）。
//
// 検証は次の順で行い、それぞれ異なる失敗モードを持つ:
//  1. 投票が存在すること（POLL_NOT_FOUND）
//  2. is_closedフラグが立っていないこと（POLL_CLOSED）
//  3. close_dateが過ぎていないこと。フラグが未反映でも締切超過は拒否する（POLL_EXPIRED）
//  4. 全choice_idsがこの投票の選択肢であり、重複・未知IDがないこと（INVALID_CHOICE_IDS）
//  5. 単一選択の投票に複数IDが来ていないこと（SINGLE_CHOICE_ONLY）
//  6. 投票者のメールが既知ユーザーに解決できること（USER_NOT_FOUND）
//
// 置き換えは削除と挿入を単一トランザクションで行い、部分的な票セットが
// 観測されることはない。
func (s *Service) Vote(ctx context.Context, pollID int64, choiceIDs []int64, voterEmail string) error {
	p, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		return fmt.Errorf("投票の取得に失敗しました: %w", err)
	}
	if p == nil {
		return model.NewPollNotFoundError(pollID)
	}

	if p.IsClosed {
		return model.NewPollClosedError()
	}

	now := time.Now().UTC()
	if p.CloseDate != nil && !p.CloseDate.UTC().After(now) {
		return model.NewPollExpiredError()
	}

	resolved, err := s.choices.FindByIDsAndPoll(ctx, choiceIDs, pollID)
	if err != nil {
		return fmt.Errorf("選択肢の検証に失敗しました: %w", err)
	}
	if len(resolved) != len(choiceIDs) {
		return model.NewInvalidChoiceIDsError()
	}

	if !p.IsMultipleChoice && len(choiceIDs) > 1 {
		return model.NewSingleChoiceOnlyError()
	}

	voter, err := s.users.FindByEmail(ctx, voterEmail)
	if err != nil {
		return fmt.Errorf("投票者の検索に失敗しました: %w", err)
	}
	if voter == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.votes.ReplaceForPoll(ctx, voter.ID, pollID, choiceIDs); err != nil {
		return fmt.Errorf("票の記録に失敗しました: %w", err)
	}

	slog.Info("vote recorded",
		slog.Int64("poll_id", pollID),
		slog.Int64("user_id", voter.ID),
		slog.Int("choices", len(choiceIDs)),
	)

	return nil
}

// Tally は選択肢テキストから得票数へのマップを返す。
// 票のない選択肢も0で含まれる。
func (s *Service) Tally(ctx context.Context, choices []model.Choice) (map[string]int, error) {
	results := make(map[string]int, len(choices))
	if len(choices) == 0 {
		return results, nil
	}

	ids := make([]int64, len(choices))
	for i, c := range choices {
		ids[i] = c.ID
		results[c.Text] = 0
	}

	counts, err := s.votes.CountByChoiceIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("得票数の取得に失敗しました: %w", err)
	}

	for _, c := range choices {
		if n, ok := counts[c.ID]; ok {
			results[c.Text] = n
		}
	}

	return results, nil
}
