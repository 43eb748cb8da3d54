package server

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/database"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/scheduler"
)

// DatabaseInterface is the database surface the status endpoint reports on
type DatabaseInterface interface {
	Name() string
	HealthCheck(ctx context.Context) error
	GetStats(ctx context.Context) (*database.Stats, error)
}

// HostStats holds host resource usage
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskFreeMB    float64 `json:"disk_free_mb"`
	Goroutines    int     `json:"goroutines"`
}

// DatabaseStatus holds one database's health and size
type DatabaseStatus struct {
	Name    string          `json:"name"`
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string         `json:"status"` // "healthy" or "unhealthy"
	UptimeSeconds float64        `json:"uptime_seconds"`
	Host          HostStats      `json:"host"`
	Database      DatabaseStatus `json:"database"`
	Timestamp     string         `json:"timestamp"`
}

// SystemHandlers serves system status and manual job triggers
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	db        DatabaseInterface
	scheduler JobRunnerInterface
	jobs      map[string]scheduler.Job
	started   time.Time
	now       func() time.Time
	hostStats func() HostStats
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, db DatabaseInterface, runner JobRunnerInterface, jobs []scheduler.Job) *SystemHandlers {
	byName := make(map[string]scheduler.Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name()] = j
	}
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		db:        db,
		scheduler: runner,
		jobs:      byName,
		started:   time.Now(),
		now:       time.Now,
	}
	h.hostStats = h.collectHostStats
	return h
}

// collectHostStats samples CPU, memory and the data directory's disk
func (h *SystemHandlers) collectHostStats() HostStats {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}

	// Sampled over 100ms
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		stats.MemoryPercent = memStat.UsedPercent
		stats.MemoryUsedMB = float64(memStat.Used) / 1024 / 1024
	}

	if h.dataDir != "" {
		if usage, err := disk.Usage(h.dataDir); err != nil {
			h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
		} else {
			stats.DiskPercent = usage.UsedPercent
			stats.DiskFreeMB = float64(usage.Free) / 1024 / 1024
		}
	}

	return stats
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: h.now().Sub(h.started).Seconds(),
		Host:          h.hostStats(),
		Timestamp:     h.now().Format(time.RFC3339),
	}

	if h.db != nil {
		response.Database.Name = h.db.Name()
		if err := h.db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Database health check failed")
			response.Status = "unhealthy"
			response.Database.Error = err.Error()
		} else {
			response.Database.Healthy = true
		}
		if stats, err := h.db.GetStats(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
		} else {
			response.Database.Stats = stats
		}
	}

	writeJSON(w, h.log, http.StatusOK, response)
}

// HandleListJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{"jobs": names})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok || h.scheduler == nil {
		http.Error(w, "Unknown job "+name, http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job triggered")
	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		writeJSON(w, h.log, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"job":     name,
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]string{
		"status": "success",
		"job":    name,
	})
}
