// internal/handler/queue_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/service"
)

// QueueHandler exposes queue depths and dead jobs for operations.
type QueueHandler struct {
	Fabric *queue.Fabric
}

func NewQueueHandler(f *queue.Fabric) *QueueHandler {
	return &QueueHandler{Fabric: f}
}

var dripQueues = []string{service.QueueBait, service.QueueMain, service.QueueFollowUp}

// StatsHandler returns waiting/delayed/active/dead counts per queue
func (h *QueueHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]map[string]int64{}
	for _, name := range dripQueues {
		counts, err := h.Fabric.Counts(r.Context(), name)
		if err != nil {
			http.Error(w, "failed to fetch queue counts: "+err.Error(), http.StatusInternalServerError)
			return
		}
		stats[name] = counts
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// DeadJobsHandler returns up to 100 dead jobs per queue for inspection
func (h *QueueHandler) DeadJobsHandler(w http.ResponseWriter, r *http.Request) {
	dead := map[string][]queue.Job{}
	for _, name := range dripQueues {
		jobs, err := h.Fabric.DeadJobs(r.Context(), name, 100)
		if err != nil {
			http.Error(w, "failed to fetch dead jobs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		dead[name] = jobs
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dead)
}
