package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pollman/internal/middleware"
	"github.com/hitoshi/pollman/internal/model"
	"github.com/hitoshi/pollman/internal/poll"
)

// PollServiceInterface は投票ハンドラーが必要とするサービスインターフェース。
type PollServiceInterface interface {
	// CreatePoll は投票と選択肢を作成する。
	CreatePoll(ctx context.Context, in poll.CreatePollInput) (*poll.CreatePollResult, error)
	// ListPolls は全投票を結果マップ付きで返す。
	ListPolls(ctx context.Context) ([]model.PollSummary, error)
	// GetPollDetails は投票詳細を返す。見つからない場合はnil。
	GetPollDetails(ctx context.Context, pollID int64) (*model.PollDetails, error)
	// ClosePoll は作成者による投票のクローズを処理する。
	ClosePoll(ctx context.Context, pollID int64, requesterEmail string, newCloseDate *string) error
}

// VoteServiceInterface は得票記録のためのインターフェース。
type VoteServiceInterface interface {
	// Vote はユーザーの投票を記録する。再投票は既存票を置き換える。
	Vote(ctx context.Context, pollID int64, choiceIDs []int64, voterEmail string) error
}

// PollMetrics は投票ハンドラーが記録するメトリクスのインターフェース。
type PollMetrics interface {
	RecordPollCreated()
	RecordVotesCast(count int)
}

// PollHandler は投票管理のHTTPハンドラー。
type PollHandler struct {
	polls   PollServiceInterface
	votes   VoteServiceInterface
	metrics PollMetrics
}

// NewPollHandler はPollHandlerを生成する。metricsはnil可。
func NewPollHandler(polls PollServiceInterface, votes VoteServiceInterface, metrics PollMetrics) *PollHandler {
	return &PollHandler{
		polls:   polls,
		votes:   votes,
		metrics: metrics,
	}
}

// createPollRequest は投票作成リクエストのボディ。
type createPollRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Choices          []string `json:"choices"`
	IsMultipleChoice bool     `json:"is_multiple_choice"`
	CloseDate        *string  `json:"close_date"`
}

// voteRequest は投票リクエストのボディ。
type voteRequest struct {
	ChoiceIDs []int64 `json:"choice_ids"`
}

// closePollRequest は投票クローズリクエストのボディ。
type closePollRequest struct {
	NewCloseDate *string `json:"new_close_date"`
}

// createPollResponse は投票作成のAPIレスポンス。
type createPollResponse struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Choices []string `json:"choices"`
}

// pollSummaryResponse は投票一覧のAPIレスポンス要素。
type pollSummaryResponse struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CloseDate   *string        `json:"close_date"`
	IsClosed    bool           `json:"is_closed"`
	Results     map[string]int `json:"results"`
}

// choiceResponse は選択肢のAPIレスポンス。
type choiceResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// pollDetailsResponse は投票詳細のAPIレスポンス。
type pollDetailsResponse struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	IsMultipleChoice bool             `json:"is_multiple_choice"`
	CloseDate        *string          `json:"close_date"`
	IsClosed         bool             `json:"is_closed"`
	Choices          []choiceResponse `json:"choices"`
}

// ListPolls は全投票の一覧を結果マップ付きで返す。
// GET /polls/
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.polls.ListPolls(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]pollSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = pollSummaryResponse{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			CloseDate:   formatCloseDate(s.CloseDate),
			IsClosed:    s.IsClosed,
			Results:     s.Results,
		}
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// CreatePoll は認証済みユーザーによる投票作成を処理する。
// POST /polls/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	in, apiErr := toCreatePollInput(req, identity.Email)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.polls.CreatePoll(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPollCreated()
	}

	writeJSONResponse(w, http.StatusOK, createPollResponse{
		ID:      result.ID,
		Title:   result.Title,
		Choices: result.Choices,
	})
}

// GetPollDetails は投票詳細を返す。
// GET /polls/{id}
func (h *PollHandler) GetPollDetails(w http.ResponseWriter, r *http.Request) {
	pollID, apiErr := pollIDFromURL(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, apiErr)
		return
	}

	details, err := h.polls.GetPollDetails(r.Context(), pollID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if details == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPollNotFoundError(pollID))
		return
	}

	choices := make([]choiceResponse, len(details.Choices))
	for i, c := range details.Choices {
		choices[i] = choiceResponse{ID: c.ID, Text: c.Text}
	}

	writeJSONResponse(w, http.StatusOK, pollDetailsResponse{
		ID:               details.ID,
		Title:            details.Title,
		Description:      details.Description,
		IsMultipleChoice: details.IsMultipleChoice,
		CloseDate:        formatCloseDate(details.CloseDate),
		IsClosed:         details.IsClosed,
		Choices:          choices,
	})
}

// Vote は認証済みユーザーの投票を処理する。
// POST /polls/{id}/vote
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	pollID, apiErr := pollIDFromURL(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, apiErr)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	if err := h.votes.Vote(r.Context(), pollID, req.ChoiceIDs, identity.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordVotesCast(len(req.ChoiceIDs))
	}

	writeJSONResponse(w, http.StatusOK, messageResponse{Message: "Vote processed successfully"})
}

// ClosePoll は作成者による投票のクローズを処理する。
// POST /polls/{id}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
		return
	}

	pollID, apiErr := pollIDFromURL(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, apiErr)
		return
	}

	var req closePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	if err := h.polls.ClosePoll(r.Context(), pollID, identity.Email, req.NewCloseDate); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, messageResponse{Message: "Poll closed successfully"})
}

// --- ヘルパー関数 ---

// pollIDFromURL はURLパスから投票IDを取り出す。
// 数値でないIDは存在しない投票として扱う。
func pollIDFromURL(r *http.Request) (int64, *model.APIError) {
	raw := chi.URLParam(r, "id")
	pollID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewPollNotFoundError(0)
	}
	return pollID, nil
}

// toCreatePollInput はリクエストボディからサービス入力に変換する。
// close_dateのパースに失敗した場合はINVALID_CLOSE_DATEを返す。
func toCreatePollInput(req createPollRequest, creatorEmail string) (poll.CreatePollInput, *model.APIError) {
	in := poll.CreatePollInput{
		Title:            req.Title,
		Description:      req.Description,
		Choices:          req.Choices,
		IsMultipleChoice: req.IsMultipleChoice,
		CreatorEmail:     creatorEmail,
	}

	if req.CloseDate != nil && *req.CloseDate != "" {
		parsed, err := poll.ParseCloseDate(*req.CloseDate)
		if err != nil {
			return poll.CreatePollInput{}, model.NewInvalidCloseDateError()
		}
		in.CloseDate = &parsed
	}

	return in, nil
}

// formatCloseDate は締切日時をISO-8601文字列に変換する。nilはnullのまま返す。
func formatCloseDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// newInvalidRequestError はリクエストボディ解析失敗のエラーを返す。
func newInvalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "Failed to parse request body",
		Category: "validation",
		Action:   "Send a valid JSON body",
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "An internal error occurred",
		Category: "system",
		Action:   "Please try again later",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodePollNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodePollClosed, model.ErrCodePollExpired, model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeInvalidChoiceIDs, model.ErrCodeSingleChoiceOnly,
		model.ErrCodeEmptyChoices, model.ErrCodeInvalidCloseDate:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredential, model.ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case model.ErrCodeNotPollCreator, model.ErrCodeAdminRequired:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
