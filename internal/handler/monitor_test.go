package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tokenwatch/internal/models"
	"tokenwatch/internal/repository"
)

type stubRepo struct {
	alerts     []models.AlertRecord
	rounds     []models.RoundRecord
	lastParams repository.ListAlertsParams
}

func (s *stubRepo) InsertAlert(ctx context.Context, item *models.AlertRecord) error { return nil }
func (s *stubRepo) InsertRound(ctx context.Context, item *models.RoundRecord) error { return nil }

func (s *stubRepo) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.AlertRecord, error) {
	s.lastParams = params
	return s.alerts, nil
}

func (s *stubRepo) CountAlerts(ctx context.Context, params repository.ListAlertsParams) (int64, error) {
	return int64(len(s.alerts)), nil
}

func (s *stubRepo) ListRounds(ctx context.Context, limit int) ([]models.RoundRecord, error) {
	return s.rounds, nil
}

func (s *stubRepo) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) DeleteRoundsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestRouter(repo repository.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &MonitorHandler{Repo: repo}
	h.Register(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	var body apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return w, body
}

func TestListAlerts(t *testing.T) {
	repo := &stubRepo{alerts: []models.AlertRecord{
		{Address: "tokA", Tier: "mid"},
		{Address: "tokB", Tier: "high"},
	}}
	r := newTestRouter(repo)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/alerts?tier=high&limit=10&since=2026-08-25T10:00:00Z")
	if w.Code != http.StatusOK || body.Code != 0 {
		t.Fatalf("status=%d code=%d", w.Code, body.Code)
	}
	if body.Meta["total"] != float64(2) {
		t.Fatalf("meta total=%v want=2", body.Meta["total"])
	}
	if repo.lastParams.Tier == nil || *repo.lastParams.Tier != "high" {
		t.Fatalf("tier filter not forwarded: %+v", repo.lastParams)
	}
	if repo.lastParams.Limit != 10 {
		t.Fatalf("limit=%d want=10", repo.lastParams.Limit)
	}
	if repo.lastParams.Since == nil {
		t.Fatalf("since filter not forwarded")
	}
}

func TestListAlertsDefaultsOnBadQuery(t *testing.T) {
	repo := &stubRepo{}
	r := newTestRouter(repo)

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/alerts?limit=garbage&since=not-a-time")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d want=200", w.Code)
	}
	if repo.lastParams.Limit != 50 || repo.lastParams.Since != nil {
		t.Fatalf("bad query should fall back to defaults: %+v", repo.lastParams)
	}
}

func TestSinkDisabled(t *testing.T) {
	r := newTestRouter(nil)

	for _, path := range []string{"/api/v1/alerts", "/api/v1/rounds"} {
		w, _ := doRequest(t, r, http.MethodGet, path)
		if w.Code != http.StatusNotImplemented {
			t.Fatalf("%s status=%d want=501", path, w.Code)
		}
	}
}

func TestStatusWithoutScheduler(t *testing.T) {
	r := newTestRouter(&stubRepo{})

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/status")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want=500 without a scheduler", w.Code)
	}
	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/rounds/trigger")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("trigger status=%d want=500 without a scheduler", w.Code)
	}
}
