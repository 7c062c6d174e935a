package readapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/replane-dev/replane-sub002/internal/apierr"
	"github.com/replane-dev/replane-sub002/internal/metrics"

	"github.com/gorilla/mux"
)

type handlers struct {
	svc             *Service
	log             *slog.Logger
	streamHeartbeat time.Duration
}

// GetConfigValue handles GET /projects/{projectId}/configs/{name}/value.
func (h *handlers) GetConfigValue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req, err := parseValueRequest(r, vars["projectId"], vars["name"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, err := parseContext(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.GetConfigValue(req.ProjectID, req.Name, req.EnvironmentID, ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"name":            result.Name,
		"version":         result.Version,
		"value":           result.Value,
		"matchedOverride": result.MatchedOverride,
		"trace":           result.Trace,
	})
}

// GetConfig handles GET /projects/{projectId}/configs/{name}: the SDK
// endpoint that returns the stored value and rendered overrides
// un-evaluated, for client-side evaluation (§4.7).
func (h *handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req, err := parseValueRequest(r, vars["projectId"], vars["name"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.GetConfig(req.ProjectID, req.Name, req.EnvironmentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"name":              result.Name,
		"version":           result.Version,
		"value":             result.Value,
		"renderedOverrides": result.Overrides,
	})
}

// GetProjectConfigs handles GET /projects/{projectId}/configs.
func (h *handlers) GetProjectConfigs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID := vars["projectId"]
	environmentID := r.URL.Query().Get("environmentId")
	if projectID == "" || environmentID == "" {
		h.writeError(w, r, &apierr.ErrBadRequest{Reason: "projectId and environmentId are required"})
		return
	}
	ctx, err := parseContext(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	results := h.svc.GetProjectConfigs(projectID, environmentID, ctx)
	out := make([]map[string]any, len(results))
	for i, res := range results {
		out[i] = map[string]any{"name": res.Name, "version": res.Version, "value": res.Value}
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

// Events handles GET /projects/{projectId}/events, a Server-Sent
// Events stream of config change notifications, adapted from the
// teacher's SSE handler: headers set up front, a subscriber channel
// drained in a select loop, a heartbeat ticker to keep intermediaries
// from closing the connection.
func (h *handlers) Events(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	environmentID := r.URL.Query().Get("environmentId")
	if projectID == "" || environmentID == "" {
		h.writeError(w, r, &apierr.ErrBadRequest{Reason: "projectId and environmentId are required"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, &apierr.ErrFatalInternal{Reason: "streaming unsupported"})
		return
	}
	flusher.Flush()

	sub := h.svc.Subscribe(projectID, environmentID)
	defer h.svc.Unsubscribe(projectID, sub)

	heartbeat := h.streamHeartbeat
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case event := <-sub.ch:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Warn("failed to marshal stream event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	metrics.ReadAPIRequestsTotal.WithLabelValues(r.URL.Path, fmt.Sprintf("%d", status)).Inc()
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierr.StatusCode(err)
	metrics.ReadAPIRequestsTotal.WithLabelValues(r.URL.Path, fmt.Sprintf("%d", status)).Inc()

	var fatal *apierr.ErrFatalInternal
	if errors.As(err, &fatal) {
		h.log.Error("fatal internal error serving request", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
