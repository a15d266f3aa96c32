package repository

import (
	"testing"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresPollRepoはPollRepositoryインターフェースを満たすことを検証
func TestPostgresPollRepo_ImplementsInterface(t *testing.T) {
	var _ PollRepository = (*PostgresPollRepo)(nil)
}

// PostgresChoiceRepoはChoiceRepositoryインターフェースを満たすことを検証
func TestPostgresChoiceRepo_ImplementsInterface(t *testing.T) {
	var _ ChoiceRepository = (*PostgresChoiceRepo)(nil)
}

// PostgresVoteRepoはVoteRepositoryインターフェースを満たすことを検証
func TestPostgresVoteRepo_ImplementsInterface(t *testing.T) {
	var _ VoteRepository = (*PostgresVoteRepo)(nil)
}

// 各リポジトリのコンストラクタが正しく初期化されることを検証
func TestNewRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Fatal("expected non-nil user repo")
	}
	if NewPostgresPollRepo(nil) == nil {
		t.Fatal("expected non-nil poll repo")
	}
	if NewPostgresChoiceRepo(nil) == nil {
		t.Fatal("expected non-nil choice repo")
	}
	if NewPostgresVoteRepo(nil) == nil {
		t.Fatal("expected non-nil vote repo")
	}
}

// nullableStringが空文字列をNULLとして扱うことを検証
func TestNullableString(t *testing.T) {
	if v := nullableString(""); v.Valid {
		t.Error("empty string should map to NULL")
	}
	if v := nullableString("poll description"); !v.Valid || v.String != "poll description" {
		t.Errorf("non-empty string should be preserved, got %+v", v)
	}
}
