package rest

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aokaito/annotune-sub000/application/services"
	"github.com/aokaito/annotune-sub000/domain/config"
	"github.com/aokaito/annotune-sub000/infrastructure/messaging/eventbridge"
	"github.com/aokaito/annotune-sub000/infrastructure/persistence/memory"
	"github.com/aokaito/annotune-sub000/interfaces/http/rest/middleware"
	"github.com/aokaito/annotune-sub000/pkg/auth"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "router-test-secret"

type testServer struct {
	handler   http.Handler
	generator *auth.JWTGenerator
}

func newTestServer(t *testing.T, trustGateway bool, readiness ReadinessCheck) *testServer {
	t.Helper()
	logger := zap.NewNop()

	cfg := config.DefaultDomainConfig()
	store := memory.NewStore(cfg.AllowOwnerlessAnnotations)
	service := services.NewLyricService(
		store.Lyrics(),
		store.Annotations(),
		store.Versions(),
		eventbridge.NewLoggingPublisher(logger),
		memory.NewDocumentLocker(cfg.AnnotationLockWait),
		observability.NoopMetrics{},
		cfg,
		logger,
	)

	jwtCfg := auth.JWTConfig{SecretKey: secret, Issuer: "annotune"}
	validator, err := auth.NewJWTValidator(jwtCfg)
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(jwtCfg, time.Hour)
	require.NoError(t, err)

	errorHandler := errors.NewErrorHandler(logger, false)
	router := NewRouter(
		service,
		middleware.NewAuthenticator(validator, trustGateway, errorHandler, logger),
		errorHandler,
		observability.NewCollector("annotune_test"),
		RouterConfig{EnableCORS: true, Readiness: readiness},
		logger,
	)

	return &testServer{handler: router.Setup(), generator: generator}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.generator.GenerateToken(userID, "Name of "+userID)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createLyric(t *testing.T, userID, text string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/lyrics", userID, map[string]interface{}{
		"title":  "Song",
		"artist": "Band",
		"text":   text,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["docId"].(string)
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, false, nil)

	rec := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = srv.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestServer(t, false, func(ctx context.Context) error {
		return stderrors.New("table unreachable")
	})
	rec = failing.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLyricLifecycle(t *testing.T) {
	srv := newTestServer(t, false, nil)

	rec := srv.do(t, http.MethodPost, "/api/v1/lyrics", "owner-A", map[string]interface{}{
		"title": "Song",
		"text":  "hello world",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	docID := created["docId"].(string)
	assert.Equal(t, "/api/v1/lyrics/"+docID, rec.Header().Get("Location"))
	assert.EqualValues(t, 1, created["version"])
	assert.Equal(t, "Name of owner-A", created["ownerName"])
	assert.Equal(t, false, created["isPublicView"])

	rec = srv.do(t, http.MethodGet, "/api/v1/lyrics/"+docID, "owner-A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)
	assert.Equal(t, "hello world", view["text"])
	assert.Equal(t, []interface{}{}, view["annotations"])

	rec = srv.do(t, http.MethodPut, "/api/v1/lyrics/"+docID, "owner-A", map[string]interface{}{
		"title": "Song", "text": "hello there", "version": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decode(t, rec)["version"])

	// Replaying the same base version is a conflict.
	rec = srv.do(t, http.MethodPut, "/api/v1/lyrics/"+docID, "owner-A", map[string]interface{}{
		"title": "Song", "text": "stale", "version": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.CodeVersionConflictOrForbidden, decode(t, rec)["code"])

	rec = srv.do(t, http.MethodGet, "/api/v1/lyrics", "owner-A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = srv.do(t, http.MethodGet, "/api/v1/lyrics/"+docID+"/versions", "owner-A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.EqualValues(t, 2, list["count"])
	items := list["items"].([]interface{})
	assert.EqualValues(t, 2, items[0].(map[string]interface{})["version"], "newest first")

	rec = srv.do(t, http.MethodGet, "/api/v1/lyrics/"+docID+"/versions/1", "owner-A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", decode(t, rec)["text"])

	rec = srv.do(t, http.MethodPost, "/api/v1/lyrics/"+docID+"/repair", "owner-A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["repaired"])

	rec = srv.do(t, http.MethodDelete, "/api/v1/lyrics/"+docID, "owner-A", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/lyrics/"+docID, "owner-A", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnershipIsEnforced(t *testing.T) {
	srv := newTestServer(t, false, nil)
	docID := srv.createLyric(t, "owner-A", "hello world")

	rec := srv.do(t, http.MethodGet, "/api/v1/lyrics/"+docID, "owner-B", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/v1/lyrics/"+docID, "owner-B", map[string]interface{}{
		"title": "x", "text": "y", "version": 1,
	})
	assert.Contains(t, []int{http.StatusForbidden, http.StatusConflict}, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/v1/lyrics/"+docID, "owner-B", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthentication(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		srv := newTestServer(t, false, nil)
		rec := srv.do(t, http.MethodGet, "/api/v1/lyrics", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		srv := newTestServer(t, false, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/lyrics", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	gatewayRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/lyrics", nil)
		req.Header.Set(middleware.HeaderGatewayAuthorized, "true")
		req.Header.Set(middleware.HeaderUserID, "owner-G")
		return req
	}

	t.Run("gateway headers ignored when untrusted", func(t *testing.T) {
		srv := newTestServer(t, false, nil)
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, gatewayRequest())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("gateway headers accepted when trusted", func(t *testing.T) {
		srv := newTestServer(t, true, nil)
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, gatewayRequest())
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequestValidation(t *testing.T) {
	srv := newTestServer(t, false, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing title", body: map[string]interface{}{"text": "hello"}},
		{name: "empty text", body: map[string]interface{}{"title": "t", "text": ""}},
		{name: "title too long", body: map[string]interface{}{"title": strings.Repeat("あ", 201), "text": "x"}},
		{name: "unknown field", body: map[string]interface{}{"title": "t", "text": "x", "mood": "sad"}},
		{name: "malformed json", body: `{"title":`},
		{name: "wrong type", body: map[string]interface{}{"title": 7, "text": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/v1/lyrics", "owner-A", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("title at the rune limit", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/v1/lyrics", "owner-A", map[string]interface{}{
			"title": strings.Repeat("あ", 200), "text": "x",
		})
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("bad version parameter", func(t *testing.T) {
		docID := srv.createLyric(t, "owner-A", "hello")
		rec := srv.do(t, http.MethodGet, "/api/v1/lyrics/"+docID+"/versions/abc", "owner-A", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("share requires isPublic", func(t *testing.T) {
		docID := srv.createLyric(t, "owner-A", "hello")
		rec := srv.do(t, http.MethodPost, "/api/v1/lyrics/"+docID+"/share", "owner-A", map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAnnotationEndpoints(t *testing.T) {
	srv := newTestServer(t, false, nil)
	docID := srv.createLyric(t, "owner-A", "hello world")
	base := "/api/v1/lyrics/" + docID + "/annotations"

	rec := srv.do(t, http.MethodPost, base, "owner-A", map[string]interface{}{
		"start": 0, "end": 5, "tag": "vibrato",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	annotationID := decode(t, rec)["annotationId"].(string)

	rec = srv.do(t, http.MethodPost, base, "owner-A", map[string]interface{}{
		"start": 3, "end": 8, "tag": "breath",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.CodeOverlappingAnnotation, decode(t, rec)["code"])

	rec = srv.do(t, http.MethodPost, base, "owner-A", map[string]interface{}{
		"start": 6, "end": 99, "tag": "breath",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeInvalidRange, decode(t, rec)["code"])

	rec = srv.do(t, http.MethodPost, base, "owner-A", map[string]interface{}{
		"end": 3, "tag": "breath",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "start is required")

	rec = srv.do(t, http.MethodPut, base+"/"+annotationID, "owner-A", map[string]interface{}{
		"start": 0, "end": 5, "tag": "vibrato", "comment": "softer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "softer", decode(t, rec)["comment"])

	rec = srv.do(t, http.MethodGet, base, "owner-A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = srv.do(t, http.MethodDelete, base+"/"+annotationID, "owner-A", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, base+"/"+annotationID, "owner-A", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	srv := newTestServer(t, false, nil)
	docID := srv.createLyric(t, "owner-A", "hello world")

	rec := srv.do(t, http.MethodGet, "/api/v1/public/lyrics/"+docID, "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "private documents are hidden")

	rec = srv.do(t, http.MethodPost, "/api/v1/lyrics/"+docID+"/share", "owner-A", map[string]interface{}{
		"isPublic": true, "ownerName": "  Aoi  ",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shared := decode(t, rec)
	assert.Equal(t, true, shared["isPublicView"])
	assert.EqualValues(t, 1, shared["version"], "sharing does not bump the version")

	rec = srv.do(t, http.MethodGet, "/api/v1/public/lyrics?author=aoi", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = srv.do(t, http.MethodGet, "/api/v1/public/lyrics?title=nomatch", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	rec = srv.do(t, http.MethodGet, "/api/v1/public/lyrics/"+docID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", decode(t, rec)["text"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, false, nil)
	srv.do(t, http.MethodGet, "/health", "", nil)

	rec := srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, false, nil)
	rec := srv.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, true, decode(t, rec)["error"])
}
