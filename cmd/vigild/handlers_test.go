package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		Bind:              ":0",
		WorkerCount:       2,
		Decay:             0.95,
		HighRiskThreshold: 0.8,
		AlertLow:          0.3,
		AlertMedium:       0.6,
		AlertHigh:         0.8,
	})
	require.NoError(t, err)
	return srv
}

func doJSON(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAnalyzeAndProfile(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)

	rec := doJSON(srv, http.MethodGet, "/api/v1/profiles/author-1", "")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/api/v1/analyze",
		`{"messageId": "m1", "authorId": "author-1", "content": "I will destroy you"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Assessment struct {
			RiskScore float64  `json:"riskScore"`
			Flags     []string `json:"flags"`
		} `json:"assessment"`
		Profile struct {
			MessageCount int64 `json:"messageCount"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Positive(res.Assessment.RiskScore)
	assert.Contains(res.Assessment.Flags, "violence")
	assert.Equal(int64(1), res.Profile.MessageCount)

	rec = doJSON(srv, http.MethodGet, "/api/v1/profiles/author-1", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"authorId":"author-1"`)
}

func TestProfileHistory(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)

	rec := doJSON(srv, http.MethodGet, "/api/v1/profiles/author-1/history", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"assessments":[]`)

	for i, content := range []string{"I will destroy you", "have a nice day"} {
		rec = doJSON(srv, http.MethodPost, "/api/v1/analyze",
			fmt.Sprintf(`{"messageId": "m%d", "authorId": "author-1", "content": "%s"}`, i, content))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = doJSON(srv, http.MethodGet, "/api/v1/profiles/author-1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		AuthorID    string `json:"authorId"`
		Assessments []struct {
			MessageID string   `json:"messageId"`
			RiskScore float64  `json:"riskScore"`
			Flags     []string `json:"flags"`
		} `json:"assessments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Assessments, 2)
	// newest first
	assert.Equal("m1", hist.Assessments[0].MessageID)
	assert.Equal("m0", hist.Assessments[1].MessageID)
	assert.Positive(hist.Assessments[1].RiskScore)
	assert.Contains(hist.Assessments[1].Flags, "violence")

	rec = doJSON(srv, http.MethodGet, "/api/v1/profiles/author-1/history?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Len(hist.Assessments, 1)

	rec = doJSON(srv, http.MethodGet, "/api/v1/profiles/author-1/history?limit=bogus", "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRequiresAuthor(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(srv, http.MethodPost, "/api/v1/analyze", `{"content": "hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertLifecycleAndStats(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)

	// saturating message raises a critical alert
	rec := doJSON(srv, http.MethodPost, "/api/v1/analyze",
		`{"messageId": "m1", "authorId": "author-1", "content": "KILL MURDER DESTROY SUBHUMAN VERMIN SUPREMACY WORTHLESS!!!!!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(srv, http.MethodGet, "/api/v1/alerts?author=author-1&status=open", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Alerts []struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Alerts, 1)
	assert.Equal("critical", listed.Alerts[0].Severity)

	id := listed.Alerts[0].ID
	rec = doJSON(srv, http.MethodPatch, fmt.Sprintf("/api/v1/alerts/%s/status", id),
		`{"status": "resolved", "notes": "false positive"}`)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"status":"resolved"`)

	rec = doJSON(srv, http.MethodPatch, fmt.Sprintf("/api/v1/alerts/%s/status", id), `{"status": "nonsense"}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doJSON(srv, http.MethodPatch, "/api/v1/alerts/no-such-id/status", `{"status": "resolved"}`)
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		MessagesAnalyzed int            `json:"messagesAnalyzed"`
		AlertsByStatus   map[string]int `json:"alertsByStatus"`
		AlertsBySeverity map[string]int `json:"alertsBySeverity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(1, stats.MessagesAnalyzed)
	assert.Equal(1, stats.AlertsByStatus["resolved"])
	assert.Equal(1, stats.AlertsBySeverity["critical"])
}
