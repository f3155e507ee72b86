package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
	"github.com/phishspector/phishspector/internal/lexical"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := core.NewScoringService(
		lexical.NewScorer(nil), nil, nil, nil, nil, nil, nil,
		zap.NewNop(),
		core.ServiceOptions{
			HeaderTTL:      time.Hour,
			QueryTTL:       time.Minute,
			AlertThreshold: 70,
			RemoteTimeout:  time.Second,
		})
	srv := httptest.NewServer(NewServer(service, zap.NewNop(), "").Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAnalyzeEmailBenign(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/analyze-email", `{
		"sender": "alice@partner.example",
		"subject": "Quarterly report",
		"snippet": "Please see attached for the Q3 numbers"
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "allow", body["verdict"])
	assert.Equal(t, "low", body["risk_level"])
	assert.Equal(t, false, body["ml_available"])
	assert.Equal(t, float64(50), body["header_trust"])
}

func TestAnalyzeEmailPhishing(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/analyze-email", `{
		"sender": "alert@secure-help.xyz",
		"subject": "URGENT!!! Verify your account now",
		"snippet": "Click here http://secure-login.xyz/verify to verify your account immediately"
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "block", body["verdict"])
	assert.Equal(t, "high", body["risk_level"])
	assert.Equal(t, float64(100), body["local"])
}

func TestAnalyzeEmailRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/analyze-email", `{"snippet": "hello"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeEmailRejectsBadJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/analyze-email", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckURLHardPattern(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/check-url", `{"url": "http://192.168.1.5/login"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "block", body["verdict"])
	assert.Equal(t, true, body["pattern_veto"])
	assert.NotEmpty(t, body["reasons"])
}

func TestCheckURLRejectsEmpty(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/check-url", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLookupHeadersWithoutProvider(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/lookup-headers", `{"sender": "a@b.example", "subject": "s"}`)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "no_token", body["error"])
}

func TestFeedbackAccepted(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/feedback", `{
		"label": "safe",
		"detail": {"senderText": "alice@partner.example"}
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
}

func TestFeedbackRejectsUnknownLabel(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/feedback", `{"label": "meh"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}
