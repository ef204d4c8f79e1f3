// Package server exposes Herald's local control API over HTTP. Scripts,
// shell prompts, and desktop widgets can query notification state and
// force a badge re-check without driving the TUI.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/civicwatch/herald/internal/bus"
	"github.com/civicwatch/herald/internal/chime"
	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/logging"
	"github.com/civicwatch/herald/internal/push"
)

const defaultHistoryLimit = 50

// Status is the /api/status response body.
type Status struct {
	Push       string `json:"push"`
	Permission string `json:"permission"`
	Sound      bool   `json:"sound"`
	Unlocked   bool   `json:"unlocked"`
	Notified   int    `json:"notified"`
}

type Server struct {
	addr  string
	store ledger.Store
	bus   *bus.Bus
	push  *push.Manager
	sound *chime.Manager
	log   *logging.Logger
	mux   *http.ServeMux
}

func NewServer(addr string, store ledger.Store, eventBus *bus.Bus, pushMgr *push.Manager, sound *chime.Manager, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		addr:  addr,
		store: store,
		bus:   eventBus,
		push:  pushMgr,
		sound: sound,
		log:   log.WithComponent("server"),
		mux:   http.NewServeMux(),
	}
}

// Start registers the API routes and serves them until the listener fails.
func (s *Server) Start() error {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/check", s.handleCheck)
	s.mux.HandleFunc("/api/history", s.handleHistory)

	s.log.Info("control API listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Push:       string(s.push.State()),
		Permission: string(s.push.Permission()),
		Sound:      s.sound.IsEnabled(),
		Unlocked:   s.sound.Unlocked(),
		Notified:   len(s.store.LoadAll()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	s.bus.Trigger(nil)
	s.log.Debug("badge re-check requested over control API")

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprint(w, "check scheduled")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries := s.store.History(limit)
	if entries == nil {
		entries = []ledger.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
