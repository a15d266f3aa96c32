package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pollman/internal/middleware"
	"github.com/hitoshi/pollman/internal/model"
	"github.com/hitoshi/pollman/internal/poll"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	// CreatePoll は投票と選択肢を作成する。
	CreatePoll(ctx context.Context, in poll.CreatePollInput) (*poll.CreatePollResult, error)
	// UpdatePoll は投票を部分更新する。
	UpdatePoll(ctx context.Context, pollID int64, update model.PollUpdate) (*model.Poll, error)
	// CheckAndCloseExpired は締切を過ぎた投票をまとめてクローズし、件数を返す。
	CheckAndCloseExpired(ctx context.Context) (int, error)
	// DeletePoll は投票を削除する。
	DeletePoll(ctx context.Context, pollID int64) error
	// DeleteUser はユーザーを削除する。
	DeleteUser(ctx context.Context, userID int64) error
	// ListAllChoices は全投票の選択肢を返す。
	ListAllChoices(ctx context.Context) ([]model.Choice, error)
}

// UserCreator は管理者によるユーザー作成のためのインターフェース。
// auth.Serviceが実装する。
type UserCreator interface {
	Register(ctx context.Context, email, password, role string) (*model.User, error)
}

// AdminMetrics は管理ハンドラーが記録するメトリクスのインターフェース。
type AdminMetrics interface {
	RecordUserRegistered()
	RecordPollCreated()
	RecordPollsClosed(count int)
}

// AdminHandler は管理者操作のHTTPハンドラー。
// ルーター側でRequireAdminミドルウェアを通過した呼び出しのみ到達する。
type AdminHandler struct {
	service AdminServiceInterface
	users   UserCreator
	metrics AdminMetrics
}

// NewAdminHandler はAdminHandlerを生成する。metricsはnil可。
func NewAdminHandler(service AdminServiceInterface, users UserCreator, metrics AdminMetrics) *AdminHandler {
	return &AdminHandler{
		service: service,
		users:   users,
		metrics: metrics,
	}
}

// adminCreateUserRequest は管理者によるユーザー作成リクエストのボディ。
type adminCreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// adminUserResponse はユーザー情報のAPIレスポンス。
type adminUserResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// updatePollRequest は投票更新リクエストのボディ。nilのフィールドは変更しない。
type updatePollRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsClosed    *bool   `json:"is_closed"`
	CloseDate   *string `json:"close_date"`
}

// adminPollResponse は投票レコードのAPIレスポンス。
type adminPollResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	IsMultipleChoice bool    `json:"is_multiple_choice"`
	CloseDate        *string `json:"close_date"`
	IsClosed         bool    `json:"is_closed"`
}

// adminChoiceResponse は選択肢のAPIレスポンス（所属投票ID付き）。
type adminChoiceResponse struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	PollID int64  `json:"poll_id"`
}

// CreateUser は管理者によるユーザー作成を処理する。roleは省略時"user"。
// POST /admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUserRegistered()
	}

	writeJSONResponse(w, http.StatusOK, adminUserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	})
}

// CreatePoll は管理者による投票作成を処理する。作成者は呼び出した管理者になる。
// POST /admin/polls
func (h *AdminHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.service.CreatePoll(r.Context(), in)
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

// UpdatePoll は管理者による投票の部分更新を処理する。
// PUT /admin/polls/{id}
func (h *AdminHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	pollID, apiErr := pollIDFromURL(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, apiErr)
		return
	}

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	update := model.PollUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsClosed:    req.IsClosed,
	}
	if req.CloseDate != nil && *req.CloseDate != "" {
		parsed, err := poll.ParseCloseDate(*req.CloseDate)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidCloseDateError())
			return
		}
		update.CloseDate = &parsed
	}

	updated, err := h.service.UpdatePoll(r.Context(), pollID, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, adminPollResponse{
		ID:               updated.ID,
		Title:            updated.Title,
		Description:      updated.Description,
		IsMultipleChoice: updated.IsMultipleChoice,
		CloseDate:        formatCloseDate(updated.CloseDate),
		IsClosed:         updated.IsClosed,
	})
}

// CheckAndClosePolls は締切を過ぎた投票のスイープを実行する。
// POST /admin/polls/check-and-close
func (h *AdminHandler) CheckAndClosePolls(w http.ResponseWriter, r *http.Request) {
	closed, err := h.service.CheckAndCloseExpired(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil && closed > 0 {
		h.metrics.RecordPollsClosed(closed)
	}

	writeJSONResponse(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("%d polls have been closed.", closed),
	})
}

// DeletePoll は投票をハード削除する。選択肢と票も連鎖削除される。
// DELETE /admin/polls/{id}
func (h *AdminHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID, apiErr := pollIDFromURL(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, apiErr)
		return
	}

	if err := h.service.DeletePoll(r.Context(), pollID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser はユーザーをハード削除する。作成した投票と票も連鎖削除される。
// DELETE /admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userIDFromURL(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, apiErr)
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChoices は全投票の選択肢一覧を返す。
// GET /admin/choices
func (h *AdminHandler) ListChoices(w http.ResponseWriter, r *http.Request) {
	choices, err := h.service.ListAllChoices(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]adminChoiceResponse, len(choices))
	for i, c := range choices {
		resp[i] = adminChoiceResponse{ID: c.ID, Text: c.Text, PollID: c.PollID}
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// userIDFromURL はURLパスからユーザーIDを取り出す。
// 数値でないIDは存在しないユーザーとして扱う。
func userIDFromURL(r *http.Request) (int64, *model.APIError) {
	raw := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewUserNotFoundError()
	}
	return userID, nil
}
