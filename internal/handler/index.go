package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexHandler answers the API root with a service banner and a database
// health check. It is public so load balancers can probe it.
type IndexHandler struct {
	name    string
	version string
	db      Pinger
	responder
}

func NewIndexHandler(name, version string, db Pinger, logger *slog.Logger) *IndexHandler {
	return &IndexHandler{name: name, version: version, db: db, responder: responder{logger: logger}}
}

type indexResponse struct {
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// HTTP: GET /api/v1/
func (h *IndexHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := indexResponse{Service: h.name, Version: h.version, Database: "ok"}
	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("database ping failed", slog.String("error", err.Error()))
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}
