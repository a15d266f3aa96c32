package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresVoteRepo はPostgreSQLを使用した票リポジトリ。
type PostgresVoteRepo struct {
	db *sql.DB
}

// NewPostgresVoteRepo はPostgresVoteRepoを生成する。
func NewPostgresVoteRepo(db *sql.DB) *PostgresVoteRepo {
	return &PostgresVoteRepo{db: db}
}

// ReplaceForPoll は指定ユーザーの指定投票に対する票を丸ごと置き換える。
// 削除と挿入を同一トランザクションで行う。Read Committed以上の分離レベルで、
// 同一ユーザーの並行再投票がdelete-then-insertの交錯で票を二重化することはない。
func (r *PostgresVoteRepo) ReplaceForPoll(ctx context.Context, userID, pollID int64, choiceIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// この投票の選択肢に対する既存票を削除
	_, err = tx.ExecContext(ctx,
		`DELETE FROM votes
		 WHERE user_id = $1
		   AND choice_id IN (SELECT id FROM choices WHERE poll_id = $2)`,
		userID, pollID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete existing votes: %w", err)
	}

	// 新しい票セットを挿入
	for _, choiceID := range choiceIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO votes (user_id, choice_id) VALUES ($1, $2)`,
			userID, choiceID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountByChoiceIDs は選択肢IDごとの得票数を返す。票のない選択肢は含まれない。
func (r *PostgresVoteRepo) CountByChoiceIDs(ctx context.Context, choiceIDs []int64) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT choice_id, count(*) FROM votes WHERE choice_id = ANY($1) GROUP BY choice_id`,
		pq.Array(choiceIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var choiceID int64
		var count int
		if err := rows.Scan(&choiceID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[choiceID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vote counts: %w", err)
	}

	return counts, nil
}

// CountByUserAndPoll は指定ユーザーが指定投票に投じた票数を返す。
func (r *PostgresVoteRepo) CountByUserAndPoll(ctx context.Context, userID, pollID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM votes
		 WHERE user_id = $1
		   AND choice_id IN (SELECT id FROM choices WHERE poll_id = $2)`,
		userID, pollID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user votes: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ VoteRepository = (*PostgresVoteRepo)(nil)
