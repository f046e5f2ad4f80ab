package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Report is the JSON form of an aggregated check run.
type Report struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is the JSON form of one result.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Report runs every check and returns the combined report.
func (a *Aggregator) Report(ctx context.Context) Report {
	results := a.CheckAll(ctx)
	rep := Report{
		Status:    Overall(results).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]CheckReport, len(results)),
	}
	for name, r := range results {
		cr := CheckReport{
			Status:   r.Status.String(),
			Message:  r.Message,
			Duration: r.Duration.String(),
			Details:  r.Details,
		}
		if r.Error != nil {
			cr.Error = r.Error.Error()
		}
		rep.Checks[name] = cr
	}
	return rep
}

// Handler serves the report as JSON: 200 when healthy or degraded, 503
// when unhealthy.
func Handler(a *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep := a.Report(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if rep.Status == StatusUnhealthy.String() {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(rep)
	}
}
