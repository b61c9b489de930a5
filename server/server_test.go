package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	mu        sync.Mutex
	hunts     []string
	tokens    []string
	resumes   map[string]bool
	processed []string
}

func newStubService() *stubService {
	return &stubService{resumes: map[string]bool{}}
}

func (s *stubService) StartHunt(niche, token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hunts = append(s.hunts, niche)
	s.tokens = append(s.tokens, token)
	return "thread-1"
}

func (s *stubService) Resume(threadID string, approve bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes[threadID] = approve
}

func (s *stubService) ProcessLead(_ context.Context, leadID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = append(s.processed, leadID)
	return nil
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := New(newStubService(), nil)
	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestInteractionPing(t *testing.T) {
	srv := New(newStubService(), nil)
	rec := doRequest(t, srv, http.MethodPost, "/interactions", `{"type": 1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type": 1}`, rec.Body.String())
}

func TestInteractionHuntCommand(t *testing.T) {
	svc := newStubService()
	srv := New(svc, nil)

	rec := doRequest(t, srv, http.MethodPost, "/interactions", `{
		"type": 2, "token": "tok-123",
		"data": {"name": "hunt", "options": [{"name": "niche", "value": "HVAC Contractors"}]}
	}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "thread-1")
	assert.Equal(t, []string{"HVAC Contractors"}, svc.hunts)
	assert.Equal(t, []string{"tok-123"}, svc.tokens)
}

func TestInteractionUnknownCommand(t *testing.T) {
	srv := New(newStubService(), nil)
	rec := doRequest(t, srv, http.MethodPost, "/interactions", `{"type": 2, "data": {"name": "dance"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInteractionMalformed(t *testing.T) {
	srv := New(newStubService(), nil)
	rec := doRequest(t, srv, http.MethodPost, "/interactions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResume(t *testing.T) {
	svc := newStubService()
	srv := New(svc, nil)

	rec := doRequest(t, srv, http.MethodPost, "/resume", `{"thread_id": "t1", "approve": true}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	approve, ok := svc.resumes["t1"]
	require.True(t, ok)
	assert.True(t, approve)
}

func TestResumeRequiresFields(t *testing.T) {
	srv := New(newStubService(), nil)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodPost, "/resume", `{"approve": true}`).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodPost, "/resume", `{"thread_id": "t1"}`).Code)
}

func TestScheduledHuntDefaultsNiche(t *testing.T) {
	svc := newStubService()
	srv := New(svc, nil)

	rec := doRequest(t, srv, http.MethodPost, "/hunt", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	// the service applies the default; the server passes the empty niche on
	assert.Equal(t, []string{""}, svc.hunts)
}

func TestProcessLead(t *testing.T) {
	svc := newStubService()
	srv := New(svc, nil)

	rec := doRequest(t, srv, http.MethodPost, "/process-lead", `{"lead_id": "lead-1"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.processed) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestProcessLeadRequiresID(t *testing.T) {
	srv := New(newStubService(), nil)
	rec := doRequest(t, srv, http.MethodPost, "/process-lead", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
