package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/orchestrator"
)

// mockJobService implements JobService for testing
type mockJobService struct {
	submitFunc    func(ctx context.Context, kind models.TaskKind, rawInput []byte, purchaserID string) (*orchestrator.SubmitResult, error)
	getStatusFunc func(ctx context.Context, jobID string) (*models.JobView, error)
}

func (m *mockJobService) Submit(ctx context.Context, kind models.TaskKind, rawInput []byte, purchaserID string) (*orchestrator.SubmitResult, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, kind, rawInput, purchaserID)
	}
	return nil, nil
}

func (m *mockJobService) GetStatus(ctx context.Context, jobID string) (*models.JobView, error) {
	if m.getStatusFunc != nil {
		return m.getStatusFunc(ctx, jobID)
	}
	return nil, nil
}

func newTestJobHandler(service JobService) *JobHandler {
	return NewJobHandler(service, arbor.NewLogger())
}

func TestSubmitHandlerSuccess(t *testing.T) {
	service := &mockJobService{
		submitFunc: func(ctx context.Context, kind models.TaskKind, rawInput []byte, purchaserID string) (*orchestrator.SubmitResult, error) {
			if kind != models.TaskKindTrading {
				t.Errorf("kind = %q, want %q", kind, models.TaskKindTrading)
			}
			return &orchestrator.SubmitResult{
				JobID:                   "job_abc",
				BlockchainIdentifier:    "bc_123",
				PayByTime:               "1700000000000",
				AgentIdentifier:         "agent_1",
				SellerVKey:              "vkey_1",
				IdentifierFromPurchaser: purchaserID,
				Amounts:                 []models.Amount{{Amount: "20000", Unit: "lovelace"}},
				InputHash:               "deadbeef",
			}, nil
		},
	}
	handler := newTestJobHandler(service)

	body := `{"task_kind":"trading","identifier_from_purchaser":"purchaser_1","input_data":{"token_symbol":"ADA"}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitHandler(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "success" {
		t.Errorf("status = %v, want success", resp["status"])
	}
	if resp["job_id"] != "job_abc" {
		t.Errorf("job_id = %v, want job_abc", resp["job_id"])
	}
	if resp["blockchainIdentifier"] != "bc_123" {
		t.Errorf("blockchainIdentifier = %v, want bc_123", resp["blockchainIdentifier"])
	}
	if resp["input_hash"] != "deadbeef" {
		t.Errorf("input_hash = %v, want deadbeef", resp["input_hash"])
	}
}

func TestSubmitHandlerInvalidInput(t *testing.T) {
	service := &mockJobService{
		submitFunc: func(ctx context.Context, kind models.TaskKind, rawInput []byte, purchaserID string) (*orchestrator.SubmitResult, error) {
			return nil, &models.InvalidInputError{Reason: "token_symbol is required"}
		},
	}
	handler := newTestJobHandler(service)

	body := `{"task_kind":"trading","input_data":{}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubmitHandlerGatewayFailure(t *testing.T) {
	service := &mockJobService{
		submitFunc: func(ctx context.Context, kind models.TaskKind, rawInput []byte, purchaserID string) (*orchestrator.SubmitResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	handler := newTestJobHandler(service)

	body := `{"task_kind":"generic_research","input_data":{"text":"hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitHandler(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestSubmitHandlerMissingInputData(t *testing.T) {
	handler := newTestJobHandler(&mockJobService{})

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"task_kind":"trading"}`))
	w := httptest.NewRecorder()

	handler.SubmitHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubmitHandlerInvalidBody(t *testing.T) {
	handler := newTestJobHandler(&mockJobService{})

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	handler.SubmitHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubmitHandlerRejectsGet(t *testing.T) {
	handler := newTestJobHandler(&mockJobService{})

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	w := httptest.NewRecorder()

	handler.SubmitHandler(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestStatusHandlerSuccess(t *testing.T) {
	service := &mockJobService{
		getStatusFunc: func(ctx context.Context, jobID string) (*models.JobView, error) {
			if jobID != "job_abc" {
				t.Errorf("jobID = %q, want job_abc", jobID)
			}
			return &models.JobView{
				JobID:         jobID,
				Status:        models.JobStatusCompleted,
				PaymentStatus: "completed",
				Result:        "85% = Great (🟢)",
			}, nil
		},
	}
	handler := newTestJobHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job_abc", nil)
	w := httptest.NewRecorder()

	handler.StatusHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var view models.JobView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Status != models.JobStatusCompleted {
		t.Errorf("job status = %q, want %q", view.Status, models.JobStatusCompleted)
	}
}

func TestStatusHandlerNotFound(t *testing.T) {
	service := &mockJobService{
		getStatusFunc: func(ctx context.Context, jobID string) (*models.JobView, error) {
			return nil, &models.NotFoundError{JobID: jobID}
		},
	}
	handler := newTestJobHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job_missing", nil)
	w := httptest.NewRecorder()

	handler.StatusHandler(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestStatusHandlerEmptyID(t *testing.T) {
	handler := newTestJobHandler(&mockJobService{})

	req := httptest.NewRequest(http.MethodGet, "/jobs/", nil)
	w := httptest.NewRecorder()

	handler.StatusHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
