package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/pollman/internal/model"
)

// PostgresPollRepo はPostgreSQLを使用した投票リポジトリ。
type PostgresPollRepo struct {
	db *sql.DB
}

// NewPostgresPollRepo はPostgresPollRepoを生成する。
func NewPostgresPollRepo(db *sql.DB) *PostgresPollRepo {
	return &PostgresPollRepo{db: db}
}

// CreateWithChoices は投票と選択肢を同一トランザクションで作成する。
// トランザクションが失敗した場合、選択肢のない投票が見えることはない。
func (r *PostgresPollRepo) CreateWithChoices(ctx context.Context, poll *model.Poll, choiceTexts []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 投票を作成
	err = tx.QueryRowContext(ctx,
		`INSERT INTO polls (title, description, creator_id, creation_date, is_closed, close_date, is_multiple_choice)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		poll.Title, nullableString(poll.Description), poll.CreatorID,
		poll.CreationDate, poll.IsClosed, poll.CloseDate, poll.IsMultipleChoice,
	).Scan(&poll.ID)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	// 選択肢を作成
	for _, text := range choiceTexts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO choices (text, poll_id) VALUES ($1, $2)`,
			text, poll.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert choice: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID は指定IDの投票を取得する。見つからない場合はnilを返す。
func (r *PostgresPollRepo) FindByID(ctx context.Context, id int64) (*model.Poll, error) {
	poll := &model.Poll{}
	var description sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, creator_id, creation_date, is_closed, close_date, is_multiple_choice
		 FROM polls WHERE id = $1`,
		id,
	).Scan(&poll.ID, &poll.Title, &description, &poll.CreatorID,
		&poll.CreationDate, &poll.IsClosed, &poll.CloseDate, &poll.IsMultipleChoice)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find poll by ID: %w", err)
	}

	poll.Description = description.String
	return poll, nil
}

// ListAll はすべての投票をID昇順で返す（クローズ済みを含む）。
func (r *PostgresPollRepo) ListAll(ctx context.Context) ([]*model.Poll, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, creator_id, creation_date, is_closed, close_date, is_multiple_choice
		 FROM polls ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	var polls []*model.Poll
	for rows.Next() {
		poll := &model.Poll{}
		var description sql.NullString
		if err := rows.Scan(&poll.ID, &poll.Title, &description, &poll.CreatorID,
			&poll.CreationDate, &poll.IsClosed, &poll.CloseDate, &poll.IsMultipleChoice); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		poll.Description = description.String
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate polls: %w", err)
	}

	return polls, nil
}

// Update は投票を部分更新する。updateのnilフィールドは変更しない。
// 見つからない場合はnilを返す。
func (r *PostgresPollRepo) Update(ctx context.Context, id int64, update model.PollUpdate) (*model.Poll, error) {
	var sets []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if update.Title != nil {
		sets = append(sets, "title = "+arg(*update.Title))
	}
	if update.Description != nil {
		sets = append(sets, "description = "+arg(*update.Description))
	}
	if update.IsClosed != nil {
		sets = append(sets, "is_closed = "+arg(*update.IsClosed))
	}
	if update.CloseDate != nil {
		sets = append(sets, "close_date = "+arg(*update.CloseDate))
	}

	if len(sets) == 0 {
		// 変更フィールドなし。現状をそのまま返す。
		return r.FindByID(ctx, id)
	}

	query := fmt.Sprintf(
		`UPDATE polls SET %s WHERE id = %s
		 RETURNING id, title, description, creator_id, creation_date, is_closed, close_date, is_multiple_choice`,
		strings.Join(sets, ", "), arg(id),
	)

	poll := &model.Poll{}
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&poll.ID, &poll.Title, &description, &poll.CreatorID,
		&poll.CreationDate, &poll.IsClosed, &poll.CloseDate, &poll.IsMultipleChoice,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update poll: %w", err)
	}

	poll.Description = description.String
	return poll, nil
}

// CloseExpired はclose_dateが経過した未クローズの投票を一括でクローズする。
// WHERE句の述語がクローズ済みを除外するため、繰り返し・並行呼び出ししても安全。
func (r *PostgresPollRepo) CloseExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE polls SET is_closed = TRUE
		 WHERE close_date IS NOT NULL AND close_date <= $1 AND is_closed = FALSE`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired polls: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// DeleteByID は指定IDの投票を削除する。選択肢・票はCASCADE削除される。
// 該当行がない場合はfalseを返す。
func (r *PostgresPollRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM polls WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete poll: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// nullableString は空文字列をNULLとして保存するためのヘルパー。
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ PollRepository = (*PostgresPollRepo)(nil)
