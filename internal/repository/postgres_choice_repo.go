package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/pollman/internal/model"
)

// PostgresChoiceRepo はPostgreSQLを使用した選択肢リポジトリ。
type PostgresChoiceRepo struct {
	db *sql.DB
}

// NewPostgresChoiceRepo はPostgresChoiceRepoを生成する。
func NewPostgresChoiceRepo(db *sql.DB) *PostgresChoiceRepo {
	return &PostgresChoiceRepo{db: db}
}

// ListByPollID は指定投票の選択肢をID昇順で返す。
func (r *PostgresChoiceRepo) ListByPollID(ctx context.Context, pollID int64) ([]model.Choice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, poll_id FROM choices WHERE poll_id = $1 ORDER BY id`,
		pollID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list choices by poll: %w", err)
	}
	defer rows.Close()

	return scanChoices(rows)
}

// ListAll はすべての選択肢をID昇順で返す。
func (r *PostgresChoiceRepo) ListAll(ctx context.Context) ([]model.Choice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, poll_id FROM choices ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list choices: %w", err)
	}
	defer rows.Close()

	return scanChoices(rows)
}

// FindByIDsAndPoll は指定IDのうちpollIDに属する選択肢を返す。
// 重複IDは1件に畳まれるため、返却件数と要求件数の比較で不正入力を検出できる。
func (r *PostgresChoiceRepo) FindByIDsAndPoll(ctx context.Context, ids []int64, pollID int64) ([]model.Choice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, poll_id FROM choices WHERE id = ANY($1) AND poll_id = $2 ORDER BY id`,
		pq.Array(ids), pollID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find choices by IDs: %w", err)
	}
	defer rows.Close()

	return scanChoices(rows)
}

// scanChoices は選択肢の行をスキャンする。
func scanChoices(rows *sql.Rows) ([]model.Choice, error) {
	var choices []model.Choice
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.Text, &c.PollID); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate choices: %w", err)
	}
	return choices, nil
}

// compile-time interface check
var _ ChoiceRepository = (*PostgresChoiceRepo)(nil)
