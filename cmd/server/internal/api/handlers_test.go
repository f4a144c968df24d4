package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/zoomrelay/cmd/server/internal/audit"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/zoom"
	"github.com/houzhh15/zoomrelay/pkg/metrics"
)

func TestHandleHealth(t *testing.T) {
	r := newTestRouter(&stubService{}, nil)

	w, body := doJSON(t, r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 200, body["code"])
	assert.Equal(t, map[string]interface{}{"status": "SUCCESS", "health": "GOOD"}, message(t, body))
}

func TestHandleReadiness(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc, nil)

	w, body := doJSON(t, r, http.MethodGet, "/readiness", "")
	assert.Equal(t, http.StatusOK, w.Code)
	msg := message(t, body)
	assert.Equal(t, true, msg["ready"])
	checks := msg["checks"].([]interface{})
	require.Len(t, checks, 1)
	assert.Equal(t, "pending", checks[0].(map[string]interface{})["status"])

	svc.ready = true
	_, body = doJSON(t, r, http.MethodGet, "/readiness", "")
	checks = message(t, body)["checks"].([]interface{})
	assert.Equal(t, "ok", checks[0].(map[string]interface{})["status"])
}

func TestHandleCreateMeeting(t *testing.T) {
	svc := &stubService{meeting: &zoom.Meeting{ID: "85746065432", Topic: "Standup"}}
	rec := &recordingAudit{}
	r := newTestRouter(svc, rec)

	w, body := doJSON(t, r, http.MethodPost, "/meet", `{"topic":"Standup"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 201, body["code"])

	msg := message(t, body)
	assert.Equal(t, "SUCCESS", msg["status"])
	assert.Equal(t, map[string]interface{}{"meetId": "85746065432", "topic": "Standup"}, msg["zoomResponse"])
	assert.Equal(t, "Standup", svc.gotTopic)

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreateMeeting, entries[0].Action)
	assert.Equal(t, "85746065432", entries[0].ResourceID)
	assert.NotEmpty(t, entries[0].RequestID)
}

func TestHandleCreateMeeting_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed json", body: `{"topic":`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "blank topic", body: `{"topic":" "}`, err: zoom.NewInvalidRequestError("topic is required"), wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "auth failed", body: `{"topic":"t"}`, err: zoom.NewAuthenticationError(401, nil), wantStatus: http.StatusBadGateway, wantCode: "AUTHENTICATION_FAILED"},
		{name: "rejected", body: `{"topic":"t"}`, err: zoom.NewUpstreamRejectionError("POST", "users/me/meetings", 400, "bad"), wantStatus: http.StatusBadGateway, wantCode: "UPSTREAM_REJECTED"},
		{name: "unavailable", body: `{"topic":"t"}`, err: zoom.NewTransientUpstreamError("POST", "users/me/meetings", 3, 503, nil), wantStatus: http.StatusServiceUnavailable, wantCode: "UPSTREAM_UNAVAILABLE"},
		{name: "invalid response", body: `{"topic":"t"}`, err: zoom.NewError(zoom.CodeUpstreamResponseInvalid, "meeting response has no id", nil), wantStatus: http.StatusBadGateway, wantCode: "UPSTREAM_RESPONSE_INVALID"},
		{name: "configuration", body: `{"topic":"t"}`, err: zoom.NewConfigurationError("x"), wantStatus: http.StatusInternalServerError, wantCode: "CONFIGURATION_INVALID"},
		{name: "untyped", body: `{"topic":"t"}`, err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubService{meetErr: tt.err}, nil)

			w, body := doJSON(t, r, http.MethodPost, "/meet", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.EqualValues(t, tt.wantStatus, body["code"])

			msg := message(t, body)
			assert.Equal(t, "ERROR", msg["status"])
			assert.Equal(t, tt.wantCode, msg["errorCode"])
			assert.NotEmpty(t, msg["reason"])
			assert.NotContains(t, msg["reason"], "boom")
		})
	}
}

func TestHandleMeetingSignature(t *testing.T) {
	tests := []struct {
		name string
		body string
		want zoom.SignatureRequest
	}{
		{name: "numbers", body: `{"meetingNumber":85746065432,"role":1}`, want: zoom.SignatureRequest{MeetingNumber: 85746065432, Role: 1}},
		{name: "strings", body: `{"meetingNumber":"123","role":"0"}`, want: zoom.SignatureRequest{MeetingNumber: 123, Role: 0}},
		{name: "expiration", body: `{"meetingNumber":123,"role":0,"expirationSeconds":"3600"}`, want: zoom.SignatureRequest{MeetingNumber: 123, ExpirationSeconds: 3600}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{signature: "a.b.c"}
			rec := &recordingAudit{}
			r := newTestRouter(svc, rec)

			w, body := doJSON(t, r, http.MethodPost, "/meet/signature", tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			assert.EqualValues(t, 200, body["code"])
			assert.Equal(t, map[string]interface{}{"signature": "a.b.c"}, message(t, body))
			assert.Equal(t, tt.want, svc.gotSig)
			require.Len(t, rec.all(), 1)
			assert.Equal(t, audit.ActionIssueSignature, rec.all()[0].Action)
		})
	}
}

func TestHandleMeetingSignature_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "not json", body: `nope`, wantCode: "INVALID_REQUEST"},
		{name: "missing meeting number", body: `{"role":1}`, wantCode: "SIGNATURE_INPUT_INVALID"},
		{name: "missing role", body: `{"meetingNumber":1}`, wantCode: "SIGNATURE_INPUT_INVALID"},
		{name: "non numeric", body: `{"meetingNumber":"abc","role":1}`, wantCode: "SIGNATURE_INPUT_INVALID"},
		{name: "fractional", body: `{"meetingNumber":12.5,"role":1}`, wantCode: "SIGNATURE_INPUT_INVALID"},
		{name: "boolean role", body: `{"meetingNumber":12,"role":true}`, wantCode: "SIGNATURE_INPUT_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{signature: "a.b.c"}
			r := newTestRouter(svc, nil)

			w, body := doJSON(t, r, http.MethodPost, "/meet/signature", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, message(t, body)["errorCode"])
			assert.Equal(t, zoom.SignatureRequest{}, svc.gotSig, "service must not be called")
		})
	}
}

func TestNoRoute(t *testing.T) {
	r := newTestRouter(&stubService{}, nil)

	w, body := doJSON(t, r, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", message(t, body)["errorCode"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&stubService{}, nil)
	metrics.RecordUpstreamRequest("POST", "users/me/meetings", "201", 0.1)

	w, _ := doJSON(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `zoom_upstream_requests_total{method="POST",outcome="201",path="users/me/meetings"}`)
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForCode(zoom.CodeInvalidRequest))
	assert.Equal(t, http.StatusBadRequest, statusForCode(zoom.CodeSignatureInputInvalid))
	assert.Equal(t, http.StatusBadGateway, statusForCode(zoom.CodeAuthenticationFailed))
	assert.Equal(t, http.StatusServiceUnavailable, statusForCode(zoom.CodeUpstreamUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusForCode(""))
}
