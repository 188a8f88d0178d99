package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/isdelr/profileapp-be/internal/cache"
	"github.com/isdelr/profileapp-be/internal/upload"
)

const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"

	// minUploadBytes is the smallest limit that still fits typical profile photos.
	minUploadBytes = 5 * 1024 * 1024

	diskWarnPercent = 90.0
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Check is the outcome of one environment probe.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthReport is the body of GET /api/health.
type HealthReport struct {
	OverallStatus   string       `json:"overall_status"`
	Checks          []Check      `json:"checks"`
	Recommendations []string     `json:"recommendations,omitempty"`
	UploadLimits    UploadLimits `json:"upload_limits"`
	Disk            *DiskReport  `json:"disk,omitempty"`
}

// UploadLimits reports the effective upload ceiling.
type UploadLimits struct {
	MaxUploadBytes int64 `json:"max_upload_bytes"`
}

// DiskReport describes the volume holding the upload directory.
type DiskReport struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// HealthHandler reports whether the process can serve and store profiles.
type HealthHandler struct {
	db        Pinger
	storage   *upload.Storage
	cache     *cache.Client
	diskUsage func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewHealthHandler creates a new HealthHandler. cache may be nil.
func NewHealthHandler(db Pinger, storage *upload.Storage, redisCache *cache.Client) *HealthHandler {
	return &HealthHandler{db: db, storage: storage, cache: redisCache, diskUsage: disk.UsageWithContext}
}

// Check handles the environment check. It answers 503 when any probe fails.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	report := HealthReport{UploadLimits: UploadLimits{MaxUploadBytes: h.storage.MaxBytes()}}
	add := func(name, status, message, recommendation string) {
		report.Checks = append(report.Checks, Check{Name: name, Status: status, Message: message})
		if recommendation != "" {
			report.Recommendations = append(report.Recommendations, recommendation)
		}
	}

	if err := h.db.PingContext(ctx); err != nil {
		add("Database", statusError, "Database is unreachable: "+err.Error(), "Check DATABASE_PATH and file permissions.")
	} else {
		add("Database", statusOK, "Database connection is healthy.", "")
	}

	if err := probeWritable(h.storage.Dir()); err != nil {
		add("Upload Directory", statusError, "Upload directory is not writable: "+err.Error(),
			"Create the uploads directory and make it writable: mkdir -p "+h.storage.Dir())
	} else {
		add("Upload Directory", statusOK, "Upload directory exists and is writable.", "")
	}

	if limit := h.storage.MaxBytes(); limit < minUploadBytes {
		add("Upload Limits", statusWarning, fmt.Sprintf("Maximum upload size is less than 5MB (%d bytes).", limit),
			"Increase MAX_UPLOAD_BYTES to at least 5MB.")
	} else {
		add("Upload Limits", statusOK, fmt.Sprintf("Maximum upload size is adequate (%d bytes).", limit), "")
	}

	if usage, err := h.diskUsage(ctx, h.storage.Dir()); err != nil {
		add("Disk Space", statusWarning, "Could not read disk usage: "+err.Error(), "")
	} else {
		report.Disk = &DiskReport{Total: usage.Total, Free: usage.Free, UsedPercent: usage.UsedPercent}
		if usage.UsedPercent > diskWarnPercent {
			add("Disk Space", statusWarning, fmt.Sprintf("Disk is %.1f%% full.", usage.UsedPercent), "Free up space on the upload volume.")
		} else {
			add("Disk Space", statusOK, fmt.Sprintf("Disk is %.1f%% full.", usage.UsedPercent), "")
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			add("Cache", statusWarning, "Redis is unreachable; serving without cache.", "Check REDIS_ADDR.")
		} else {
			add("Cache", statusOK, "Redis is reachable.", "")
		}
	}

	report.OverallStatus = statusOK
	for _, c := range report.Checks {
		if c.Status == statusError {
			report.OverallStatus = statusError
			break
		}
		if c.Status == statusWarning {
			report.OverallStatus = statusWarning
		}
	}

	status := http.StatusOK
	if report.OverallStatus == statusError {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".healthcheck-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
