package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/pollman/internal/model"
	"github.com/hitoshi/pollman/internal/poll"
)

// --- POST /admin/users テスト ---

func TestAdminHandler_CreateUser_WithRole(t *testing.T) {
	users := &mockAuthService{
		registerFn: func(ctx context.Context, email, password, role string) (*model.User, error) {
			if role != model.RoleAdmin {
				t.Errorf("role = %q, want %q", role, model.RoleAdmin)
			}
			return &model.User{ID: 5, Email: email, Role: role, IsActive: true}, nil
		},
	}
	metrics := &mockHandlerMetrics{}

	h := NewAdminHandler(&mockPollService{}, users, metrics)

	body := `{"email": "root@example.com", "password": "s3cret", "role": "admin"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.CreateUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp adminUserResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != 5 {
		t.Errorf("id = %d, want 5", resp.ID)
	}
	if resp.Role != model.RoleAdmin {
		t.Errorf("role = %q, want %q", resp.Role, model.RoleAdmin)
	}
	if metrics.usersRegistered != 1 {
		t.Errorf("usersRegistered = %d, want 1", metrics.usersRegistered)
	}
}

func TestAdminHandler_CreateUser_DuplicateEmail_Returns409(t *testing.T) {
	users := &mockAuthService{
		registerFn: func(ctx context.Context, email, password, role string) (*model.User, error) {
			return nil, model.NewEmailTakenError()
		},
	}

	h := NewAdminHandler(&mockPollService{}, users, nil)

	body := `{"email": "root@example.com", "password": "s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.CreateUser(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- POST /admin/polls テスト ---

func TestAdminHandler_CreatePoll_UsesCallerAsCreator(t *testing.T) {
	svc := &mockPollService{
		createPollFn: func(ctx context.Context, in poll.CreatePollInput) (*poll.CreatePollResult, error) {
			if in.CreatorEmail != "root@example.com" {
				t.Errorf("creatorEmail = %q, want %q", in.CreatorEmail, "root@example.com")
			}
			return &poll.CreatePollResult{ID: 3, Title: in.Title, Choices: in.Choices}, nil
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	body := `{"title": "Admin Poll", "choices": ["A", "B"]}`
	req := httptest.NewRequest(http.MethodPost, "/admin/polls", bytes.NewBufferString(body))
	req = withIdentity(req, "root@example.com", model.RoleAdmin)
	w := httptest.NewRecorder()

	h.CreatePoll(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

// --- PUT /admin/polls/{id} テスト ---

func TestAdminHandler_UpdatePoll_PartialUpdate(t *testing.T) {
	svc := &mockPollService{
		updatePollFn: func(ctx context.Context, pollID int64, update model.PollUpdate) (*model.Poll, error) {
			if pollID != 7 {
				t.Errorf("pollID = %d, want 7", pollID)
			}
			if update.Title == nil || *update.Title != "New Title" {
				t.Errorf("title = %v, want New Title", update.Title)
			}
			if update.Description != nil {
				t.Errorf("description = %v, want nil", *update.Description)
			}
			if update.IsClosed == nil || !*update.IsClosed {
				t.Errorf("isClosed = %v, want true", update.IsClosed)
			}
			if update.CloseDate != nil {
				t.Errorf("closeDate = %v, want nil", *update.CloseDate)
			}
			return &model.Poll{ID: 7, Title: "New Title", IsClosed: true}, nil
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	body := `{"title": "New Title", "is_closed": true}`
	req := httptest.NewRequest(http.MethodPut, "/admin/polls/7", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "7")
	w := httptest.NewRecorder()

	h.UpdatePoll(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp adminPollResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Title != "New Title" {
		t.Errorf("title = %q, want %q", resp.Title, "New Title")
	}
	if !resp.IsClosed {
		t.Error("is_closed should be true")
	}
}

func TestAdminHandler_UpdatePoll_ParsesCloseDate(t *testing.T) {
	svc := &mockPollService{
		updatePollFn: func(ctx context.Context, pollID int64, update model.PollUpdate) (*model.Poll, error) {
			want := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
			if update.CloseDate == nil || !update.CloseDate.Equal(want) {
				t.Errorf("closeDate = %v, want %v", update.CloseDate, want)
			}
			return &model.Poll{ID: pollID, CloseDate: update.CloseDate}, nil
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	body := `{"close_date": "2025-05-10T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPut, "/admin/polls/7", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "7")
	w := httptest.NewRecorder()

	h.UpdatePoll(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestAdminHandler_UpdatePoll_InvalidCloseDate_Returns400(t *testing.T) {
	serviceCalled := false
	svc := &mockPollService{
		updatePollFn: func(ctx context.Context, pollID int64, update model.PollUpdate) (*model.Poll, error) {
			serviceCalled = true
			return nil, nil
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	body := `{"close_date": "10-05-2025"}`
	req := httptest.NewRequest(http.MethodPut, "/admin/polls/7", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "7")
	w := httptest.NewRecorder()

	h.UpdatePoll(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if serviceCalled {
		t.Error("service should not be called for an invalid close date")
	}
	if errResp := parseErrorResponse(t, w); errResp.Message != "Invalid close date format" {
		t.Errorf("message = %q, want %q", errResp.Message, "Invalid close date format")
	}
}

func TestAdminHandler_UpdatePoll_NotFound_Returns404(t *testing.T) {
	svc := &mockPollService{
		updatePollFn: func(ctx context.Context, pollID int64, update model.PollUpdate) (*model.Poll, error) {
			return nil, model.NewPollNotFoundError(pollID)
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	body := `{"title": "New Title"}`
	req := httptest.NewRequest(http.MethodPut, "/admin/polls/99", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "99")
	w := httptest.NewRecorder()

	h.UpdatePoll(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- POST /admin/polls/check-and-close テスト ---

func TestAdminHandler_CheckAndClosePolls_ReturnsCount(t *testing.T) {
	svc := &mockPollService{
		checkAndCloseExpiredFn: func(ctx context.Context) (int, error) {
			return 2, nil
		},
	}
	metrics := &mockHandlerMetrics{}

	h := NewAdminHandler(svc, &mockAuthService{}, metrics)

	req := httptest.NewRequest(http.MethodPost, "/admin/polls/check-and-close", nil)
	w := httptest.NewRecorder()

	h.CheckAndClosePolls(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseMessageResponse(t, w); got != "2 polls have been closed." {
		t.Errorf("message = %q, want %q", got, "2 polls have been closed.")
	}
	if metrics.pollsClosed != 2 {
		t.Errorf("pollsClosed = %d, want 2", metrics.pollsClosed)
	}
}

func TestAdminHandler_CheckAndClosePolls_ZeroClosed(t *testing.T) {
	metrics := &mockHandlerMetrics{}

	h := NewAdminHandler(&mockPollService{}, &mockAuthService{}, metrics)

	req := httptest.NewRequest(http.MethodPost, "/admin/polls/check-and-close", nil)
	w := httptest.NewRecorder()

	h.CheckAndClosePolls(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseMessageResponse(t, w); got != "0 polls have been closed." {
		t.Errorf("message = %q, want %q", got, "0 polls have been closed.")
	}
	if metrics.pollsClosed != 0 {
		t.Errorf("pollsClosed = %d, want 0", metrics.pollsClosed)
	}
}

// --- DELETE /admin/polls/{id}, /admin/users/{id} テスト ---

func TestAdminHandler_DeletePoll_Returns204(t *testing.T) {
	svc := &mockPollService{
		deletePollFn: func(ctx context.Context, pollID int64) error {
			if pollID != 7 {
				t.Errorf("pollID = %d, want 7", pollID)
			}
			return nil
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/polls/7", nil)
	req = withChiURLParam(req, "id", "7")
	w := httptest.NewRecorder()

	h.DeletePoll(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestAdminHandler_DeletePoll_NotFound_Returns404(t *testing.T) {
	svc := &mockPollService{
		deletePollFn: func(ctx context.Context, pollID int64) error {
			return model.NewPollNotFoundError(pollID)
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/polls/99", nil)
	req = withChiURLParam(req, "id", "99")
	w := httptest.NewRecorder()

	h.DeletePoll(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAdminHandler_DeleteUser_Returns204(t *testing.T) {
	svc := &mockPollService{
		deleteUserFn: func(ctx context.Context, userID int64) error {
			if userID != 12 {
				t.Errorf("userID = %d, want 12", userID)
			}
			return nil
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/12", nil)
	req = withChiURLParam(req, "id", "12")
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestAdminHandler_DeleteUser_NotFound_Returns404(t *testing.T) {
	svc := &mockPollService{
		deleteUserFn: func(ctx context.Context, userID int64) error {
			return model.NewUserNotFoundError()
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/99", nil)
	req = withChiURLParam(req, "id", "99")
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- GET /admin/choices テスト ---

func TestAdminHandler_ListChoices_ReturnsAll(t *testing.T) {
	svc := &mockPollService{
		listAllChoicesFn: func(ctx context.Context) ([]model.Choice, error) {
			return []model.Choice{
				{ID: 10, Text: "Yes", PollID: 7},
				{ID: 11, Text: "No", PollID: 7},
				{ID: 20, Text: "Maybe", PollID: 8},
			}, nil
		},
	}

	h := NewAdminHandler(svc, &mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/choices", nil)
	w := httptest.NewRecorder()

	h.ListChoices(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp []adminChoiceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 3 {
		t.Fatalf("choices length = %d, want 3", len(resp))
	}
	if resp[2].PollID != 8 {
		t.Errorf("third choice poll_id = %d, want 8", resp[2].PollID)
	}
}
