package server

import (
	"net/http"
	"os"

	"stagehand/internal/api"
	"stagehand/internal/logging"
	"stagehand/internal/pubsub"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := api.StatusResponse{
		Running:   true,
		PID:       os.Getpid(),
		StartedAt: api.FormatTimestamp(s.startedAt),
		EditLocks: []api.EditLock{},
		Notifier: api.NotifierStatus{
			LastSequence: s.deps.Hub.LastSequence(),
			Subscribers:  make(map[string]int, len(pubsub.Topics)),
		},
	}
	for _, topic := range pubsub.Topics {
		resp.Notifier.Subscribers[string(topic)] = s.deps.Hub.SubscriberCount(topic)
	}

	if s.deps.Store != nil {
		health, err := s.deps.Store.CheckHealth(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Database = api.FromDatabaseHealth(health)
		locks, err := s.deps.Store.ListEditLocks(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.EditLocks = api.FromEditLocks(locks)
	}
	if s.deps.Cache != nil {
		entries, err := s.deps.Cache.Len()
		if err != nil {
			logging.WarnWithContext(s.log(r), "cache size unavailable", "cache_stats_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "status reports zero cache entries"),
			)
		}
		resp.CacheEntries = entries
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}
