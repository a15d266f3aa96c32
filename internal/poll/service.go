// Package poll は投票ライフサイクルのドメインロジックを提供する。
// 作成・部分更新・クローズ・締切スイープ・削除・一覧（結果付き）を担い、
// 得票の記録はvoteパッケージが担当する。
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/pollman/internal/model"
	"github.com/hitoshi/pollman/internal/repository"
)

// Tallier は投票結果の集計インターフェース。
// voteパッケージのServiceが実装する。
type Tallier interface {
	// Tally は選択肢テキストから得票数へのマップを返す。
	// 票のない選択肢も0で含まれる。
	Tally(ctx context.Context, choices []model.Choice) (map[string]int, error)
}

// CreatePollInput は投票作成の入力を表す。
type CreatePollInput struct {
	Title            string
	Description      string
	Choices          []string
	IsMultipleChoice bool
	CloseDate        *time.Time
	CreatorEmail     string
}

// CreatePollResult は投票作成の結果サマリを表す。
type CreatePollResult struct {
	ID      int64
	Title   string
	Choices []string
}

// Service は投票ライフサイクルのサービス層。
type Service struct {
	polls   repository.PollRepository
	choices repository.ChoiceRepository
	users   repository.UserRepository
	tallier Tallier
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	polls repository.PollRepository,
	choices repository.ChoiceRepository,
	users repository.UserRepository,
	tallier Tallier,
) *Service {
	return &Service{
		polls:   polls,
		choices: choices,
		users:   users,
		tallier: tallier,
	}
}

// CreatePoll は投票と選択肢を作成する。
// 選択肢が空、または空文字列の選択肢が含まれる場合は検証エラーを返す。
// 作成者はCreatorEmailから解決し、未知のメールの場合はUSER_NOT_FOUNDを返す。
// creation_dateは永続化時点の現在時刻（UTC）でスタンプされる。
func (s *Service) CreatePoll(ctx context.Context, in CreatePollInput) (*CreatePollResult, error) {
	if len(in.Choices) == 0 {
		return nil, model.NewEmptyChoicesError()
	}
	for _, text := range in.Choices {
		if strings.TrimSpace(text) == "" {
			return nil, model.NewEmptyChoicesError()
		}
	}

	creator, err := s.users.FindByEmail(ctx, in.CreatorEmail)
	if err != nil {
		return nil, fmt.Errorf("作成者の検索に失敗しました: %w", err)
	}
	if creator == nil {
		return nil, model.NewUserNotFoundError()
	}

	p := &model.Poll{
		Title:            in.Title,
		Description:      in.Description,
		CreatorID:        creator.ID,
		CreationDate:     time.Now().UTC(),
		IsClosed:         false,
		CloseDate:        in.CloseDate,
		IsMultipleChoice: in.IsMultipleChoice,
	}
	if err := s.polls.CreateWithChoices(ctx, p, in.Choices); err != nil {
		return nil, fmt.Errorf("投票の作成に失敗しました: %w", err)
	}

	slog.Info("poll created",
		slog.Int64("poll_id", p.ID),
		slog.Int64("creator_id", creator.ID),
		slog.Int("choices", len(in.Choices)),
	)

	return &CreatePollResult{ID: p.ID, Title: p.Title, Choices: in.Choices}, nil
}

// UpdatePoll は投票を部分更新する。updateのnilフィールドは変更しない。
// 投票が見つからない場合はPOLL_NOT_FOUNDを返す。
func (s *Service) UpdatePoll(ctx context.Context, pollID int64, update model.PollUpdate) (*model.Poll, error) {
	p, err := s.polls.Update(ctx, pollID, update)
	if err != nil {
		return nil, fmt.Errorf("投票の更新に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPollNotFoundError(pollID)
	}
	return p, nil
}

// ClosePoll は投票を作成者がクローズする。
// 作成者以外の呼び出しはNOT_POLL_CREATOR、クローズ済みはPOLL_CLOSEDを返す。
// newCloseDateが指定された場合はISO-8601としてパースし締切日時を差し替える。
// 日時の差し替え有無に関わらずis_closedはtrueになる。
func (s *Service) ClosePoll(ctx context.Context, pollID int64, requesterEmail string, newCloseDate *string) error {
	p, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		return fmt.Errorf("投票の取得に失敗しました: %w", err)
	}
	if p == nil {
		return model.NewPollNotFoundError(pollID)
	}

	if p.IsClosed {
		return model.NewPollAlreadyClosedError()
	}

	creator, err := s.users.FindByID(ctx, p.CreatorID)
	if err != nil {
		return fmt.Errorf("作成者の取得に失敗しました: %w", err)
	}
	if creator == nil {
		return model.NewUserNotFoundError()
	}
	if creator.Email != requesterEmail {
		return model.NewNotPollCreatorError()
	}

	update := model.PollUpdate{IsClosed: boolPtr(true)}
	if newCloseDate != nil && *newCloseDate != "" {
		parsed, err := ParseCloseDate(*newCloseDate)
		if err != nil {
			return err
		}
		update.CloseDate = &parsed
	}

	if _, err := s.polls.Update(ctx, pollID, update); err != nil {
		return fmt.Errorf("投票のクローズに失敗しました: %w", err)
	}

	slog.Info("poll closed",
		slog.Int64("poll_id", pollID),
		slog.String("closed_by", requesterEmail),
	)

	return nil
}

// CheckAndCloseExpired はclose_dateが経過した未クローズの投票を一括でクローズし、
// クローズした件数を返す。述語がクローズ済みを除外するため冪等で、
// 外部トリガ（cron等）から繰り返し・並行に呼んでも安全。
func (s *Service) CheckAndCloseExpired(ctx context.Context) (int, error) {
	count, err := s.polls.CloseExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("締切スイープに失敗しました: %w", err)
	}

	slog.Info("expired polls swept", slog.Int("closed_count", count))
	return count, nil
}

// DeletePoll は投票をハード削除する。選択肢・票はCASCADE削除される。
func (s *Service) DeletePoll(ctx context.Context, pollID int64) error {
	deleted, err := s.polls.DeleteByID(ctx, pollID)
	if err != nil {
		return fmt.Errorf("投票の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewPollNotFoundError(pollID)
	}
	return nil
}

// DeleteUser はユーザーをハード削除する。
// そのユーザーの投票・票はCASCADE削除される（DESIGN.md参照）。
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	deleted, err := s.users.DeleteByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewUserNotFoundError()
	}
	return nil
}

// ListPolls はすべての投票を結果付きで返す。
// 名前に反してクローズ済みの投票も含む（クローズ済み投票の閲覧がこの挙動に
// 依存しているため意図的に維持している）。
// クローズ済みの投票には全票の集計を、開いている投票には全選択肢0のマップを
// 返す（投票中の途中経過は隠す）。
func (s *Service) ListPolls(ctx context.Context) ([]model.PollSummary, error) {
	polls, err := s.polls.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("投票一覧の取得に失敗しました: %w", err)
	}

	summaries := make([]model.PollSummary, 0, len(polls))
	for _, p := range polls {
		choices, err := s.choices.ListByPollID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("選択肢の取得に失敗しました: %w", err)
		}

		results := make(map[string]int, len(choices))
		if p.IsClosed {
			results, err = s.tallier.Tally(ctx, choices)
			if err != nil {
				return nil, fmt.Errorf("得票の集計に失敗しました: %w", err)
			}
		} else {
			for _, c := range choices {
				results[c.Text] = 0
			}
		}

		summaries = append(summaries, model.PollSummary{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			CloseDate:   p.CloseDate,
			IsClosed:    p.IsClosed,
			Results:     results,
		})
	}

	return summaries, nil
}

// GetPollDetails は投票の詳細（選択肢一覧付き）を返す。
// 見つからない場合はnilを返す。
func (s *Service) GetPollDetails(ctx context.Context, pollID int64) (*model.PollDetails, error) {
	p, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("投票の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, nil
	}

	choices, err := s.choices.ListByPollID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("選択肢の取得に失敗しました: %w", err)
	}

	return &model.PollDetails{
		ID:               p.ID,
		Title:            p.Title,
		Description:      p.Description,
		IsMultipleChoice: p.IsMultipleChoice,
		CloseDate:        p.CloseDate,
		IsClosed:         p.IsClosed,
		Choices:          choices,
	}, nil
}

// ListAllChoices はすべての選択肢を返す（管理者の点検用）。
func (s *Service) ListAllChoices(ctx context.Context) ([]model.Choice, error) {
	choices, err := s.choices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("選択肢一覧の取得に失敗しました: %w", err)
	}
	return choices, nil
}

func boolPtr(b bool) *bool {
	return &b
}
