package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/zoomrelay/cmd/server/internal/audit"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/zoom"
)

// stubService is a MeetingService with canned results.
type stubService struct {
	meeting   *zoom.Meeting
	meetErr   error
	signature string
	signErr   error
	ready     bool

	gotTopic string
	gotSig   zoom.SignatureRequest
}

func (s *stubService) CreateMeeting(ctx context.Context, topic string) (*zoom.Meeting, error) {
	s.gotTopic = topic
	return s.meeting, s.meetErr
}

func (s *stubService) GenerateSignature(req zoom.SignatureRequest) (string, error) {
	s.gotSig = req
	return s.signature, s.signErr
}

func (s *stubService) Ready() bool { return s.ready }

// recordingAudit keeps audit entries in memory.
type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.AuditEntry
}

func (r *recordingAudit) Log(e audit.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAudit) all() []audit.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.AuditEntry(nil), r.entries...)
}

func newTestRouter(svc MeetingService, auditLog audit.AuditLogger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{Service: svc, Audit: auditLog, CORSOrigins: []string{"*"}})
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func message(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	m, ok := body["message"].(map[string]interface{})
	require.True(t, ok, "message is not an object: %v", body)
	return m
}
