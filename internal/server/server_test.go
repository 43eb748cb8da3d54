package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/database"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/scheduler"
)

type fakeDB struct {
	healthErr error
}

func (f *fakeDB) Name() string { return "learning" }

func (f *fakeDB) HealthCheck(ctx context.Context) error { return f.healthErr }

func (f *fakeDB) GetStats(ctx context.Context) (*database.Stats, error) {
	return &database.Stats{PageCount: 12, PageSize: 4096}, nil
}

type fakeJob struct {
	name string
	err  error
}

func (j *fakeJob) Name() string                  { return j.name }
func (j *fakeJob) Run(ctx context.Context) error { return j.err }

type fakeRunner struct {
	ran []string
}

func (r *fakeRunner) RunNow(job scheduler.Job) error {
	r.ran = append(r.ran, job.Name())
	return job.Run(context.Background())
}

type pingModule struct{}

func (pingModule) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func newTestServer(db DatabaseInterface, runner JobRunnerInterface) *Server {
	s := New(Config{
		Log:       zerolog.New(nil).Level(zerolog.Disabled),
		Port:      0,
		DevMode:   true,
		DB:        db,
		Modules:   []RouteRegistrar{pingModule{}},
		Scheduler: runner,
		Jobs: []scheduler.Job{
			&fakeJob{name: "correlation_refresh"},
			&fakeJob{name: "retention_sweep", err: errors.New("disk full")},
		},
	})
	s.systemHandlers.hostStats = func() HostStats { return HostStats{CPUPercent: 12.5, Goroutines: 3} }
	return s
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthAndModules(t *testing.T) {
	s := newTestServer(&fakeDB{}, &fakeRunner{})

	w := serve(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = serve(s, http.MethodGet, "/api/ping")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestHandleSystemStatus(t *testing.T) {
	s := newTestServer(&fakeDB{}, &fakeRunner{})

	w := serve(s, http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 12.5, resp.Host.CPUPercent)
	assert.True(t, resp.Database.Healthy)
	require.NotNil(t, resp.Database.Stats)
	assert.Equal(t, int64(12), resp.Database.Stats.PageCount)
}

func TestHandleSystemStatus_Unhealthy(t *testing.T) {
	s := newTestServer(&fakeDB{healthErr: errors.New("integrity check failed")}, &fakeRunner{})

	w := serve(s, http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.False(t, resp.Database.Healthy)
	assert.Equal(t, "integrity check failed", resp.Database.Error)
}

func TestJobEndpoints(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(&fakeDB{}, runner)

	w := serve(s, http.MethodGet, "/api/system/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs":["correlation_refresh","retention_sweep"]}`, w.Body.String())

	w = serve(s, http.MethodPost, "/api/system/jobs/correlation_refresh")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, http.MethodPost, "/api/system/jobs/retention_sweep")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")

	w = serve(s, http.MethodPost, "/api/system/jobs/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"correlation_refresh", "retention_sweep"}, runner.ran)
}
