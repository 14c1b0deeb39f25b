package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapy-abstraction-server/internal/cache"
	"github.com/therapy-abstraction-server/internal/config"
	"github.com/therapy-abstraction-server/internal/domain"
	"github.com/therapy-abstraction-server/internal/engine"
	"github.com/therapy-abstraction-server/internal/knowledge"
	"github.com/therapy-abstraction-server/internal/review"
)

func testServer(t *testing.T, deps func(*Dependencies)) *Server {
	t.Helper()

	viper.Reset()
	manager, err := config.NewManager()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	kb := knowledge.NewBase()
	d := Dependencies{
		Engine:    engine.New(logger, kb, engine.DefaultConfig()),
		Knowledge: kb,
	}
	if deps != nil {
		deps(&d)
	}

	return NewServer(logger, manager, d)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func sampleTimeline() domain.PatientTimeline {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := func(n int) *time.Time {
		d := base.AddDate(0, 0, n)
		return &d
	}
	dose := 2.0

	return domain.PatientTimeline{
		PatientID:      "PT-100",
		DiagnosisLabel: "glioblastoma",
		DiagnosisDate:  day(-7),
		Events: []domain.TimelineEvent{
			{ID: "ev-sx", Type: domain.SURGERY, Date: day(0), ResectionExtent: "gross total resection"},
			{ID: "ev-rt1", Type: domain.RADIATION_FRACTION, Date: day(14), DoseGy: &dose, TargetVolume: "tumor bed"},
			{ID: "ev-chemo1", Type: domain.CHEMO_ADMINISTRATION, Date: day(14), DrugName: "temozolomide"},
			{ID: "ev-img", Type: domain.IMAGING_ASSESSMENT, Date: day(70), ResponseText: "partial response"},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, engine.Version, body["engine_version"])
	assert.Equal(t, knowledge.BaseVersion, body["knowledge_base_version"])
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAbstractEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/abstractions", sampleTimeline())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result domain.TherapyAbstraction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "PT-100", result.PatientID)
	require.Len(t, result.LinesOfTherapy, 1)
	assert.Equal(t, engine.Version, result.EngineVersion)
}

func TestAbstractEndpoint_InvalidBody(t *testing.T) {
	srv := testServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/abstractions", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAbstractEndpoint_MissingPatientID(t *testing.T) {
	srv := testServer(t, nil)

	timeline := sampleTimeline()
	timeline.PatientID = ""
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/abstractions", timeline)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrMissingInput)
}

func TestAbstractEndpoint_DuplicateEventIDs(t *testing.T) {
	srv := testServer(t, nil)

	timeline := sampleTimeline()
	timeline.Events = append(timeline.Events, timeline.Events[0])
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/abstractions", timeline)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate event ID")
}

func TestAbstractEndpoint_CacheHit(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	resultCache, err := cache.New(logger, domain.CacheConfig{MemorySize: 16, DefaultTTL: time.Hour})
	require.NoError(t, err)

	srv := testServer(t, func(d *Dependencies) {
		d.Cache = resultCache
	})

	first := doJSON(t, srv, http.MethodPost, "/api/v1/abstractions", sampleTimeline())
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := doJSON(t, srv, http.MethodPost, "/api/v1/abstractions", sampleTimeline())
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestListProtocolsEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/protocols", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		KnowledgeBaseVersion string                        `json:"knowledge_base_version"`
		Systemic             []knowledge.Protocol          `json:"systemic_protocols"`
		Radiation            []knowledge.RadiationProtocol `json:"radiation_protocols"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, knowledge.BaseVersion, body.KnowledgeBaseVersion)
	assert.NotEmpty(t, body.Systemic)
	assert.NotEmpty(t, body.Radiation)
}

func TestReviewEndpoints(t *testing.T) {
	store, err := review.NewSQLiteStore(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	defer store.Close()

	srv := testServer(t, func(d *Dependencies) {
		d.Reviews = store
	})

	rv := review.Review{
		PatientID:           "PT-100",
		LineNumber:          1,
		SuggestedRegimen:    "Stupp Protocol",
		SuggestedConfidence: domain.HIGH,
		ReviewerRegimen:     "Stupp Protocol",
		ReviewerAgreed:      true,
	}
	saved := doJSON(t, srv, http.MethodPost, "/api/v1/reviews", rv)
	require.Equal(t, http.StatusOK, saved.Code, saved.Body.String())

	got := doJSON(t, srv, http.MethodGet, "/api/v1/reviews/PT-100/1", nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), "Stupp Protocol")

	missing := doJSON(t, srv, http.MethodGet, "/api/v1/reviews/PT-100/2", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	list := doJSON(t, srv, http.MethodGet, "/api/v1/reviews", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"total":1`)
}

func TestReviewEndpoint_RejectsBadConfidence(t *testing.T) {
	store, err := review.NewSQLiteStore(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	defer store.Close()

	srv := testServer(t, func(d *Dependencies) {
		d.Reviews = store
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/reviews", map[string]interface{}{
		"patient_id":           "PT-100",
		"line_number":          1,
		"suggested_confidence": "certain",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
