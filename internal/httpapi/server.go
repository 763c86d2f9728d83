// Package httpapi exposes the read-only REST surface next to the websocket
// endpoint: room lookups for pre-join validation, derived timer reads for
// non-realtime integrations, and service stats.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/cueview/cueview/internal/models"
	"github.com/cueview/cueview/internal/rooms"
	"github.com/cueview/cueview/internal/session"
	"github.com/cueview/cueview/internal/timer"
)

type Server struct {
	registry *rooms.Registry
	hub      *session.Hub
	clock    clockwork.Clock
}

func NewServer(registry *rooms.Registry, hub *session.Hub, clock clockwork.Clock) *Server {
	return &Server{registry: registry, hub: hub, clock: clock}
}

// Options configures the middleware wrapping the routes.
type Options struct {
	CORSOrigin     string
	RateLimit      float64
	RateLimitBurst int
}

// Handler builds the full route table with CORS and rate limiting applied.
// The websocket upgrade lives under the same tree so one listener serves both.
func (s *Server) Handler(opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/stats", s.stats)
	mux.HandleFunc("GET /api/rooms/{code}", s.roomSummary)
	mux.HandleFunc("GET /api/rooms/{code}/timers", s.roomTimers)
	mux.HandleFunc("GET /api/rooms/{code}/timers/{timerId}", s.roomTimer)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := s.hub.ServeWS(w, r); err != nil {
			log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		}
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{opts.CORSOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	var handler http.Handler = mux
	if opts.RateLimit > 0 {
		handler = NewRateLimiter(opts.RateLimit, opts.RateLimitBurst).Middleware(handler)
	}
	return c.Handler(handler)
}

type roomSummaryResponse struct {
	RoomID        string    `json:"roomId"`
	Name          string    `json:"name,omitempty"`
	HasController bool      `json:"hasController"`
	ViewerCount   int       `json:"viewerCount"`
	TimerCount    int       `json:"timerCount"`
	ActiveTimerID string    `json:"activeTimerId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type statsResponse struct {
	ActiveRooms  int `json:"activeRooms"`
	RunningRooms int `json:"runningRooms"`
	Connections  int `json:"connections"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	active, err := s.registry.ActiveRoomCount(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		ActiveRooms:  active,
		RunningRooms: len(s.registry.RunningRooms()),
		Connections:  s.hub.ConnectionCount(),
	})
}

func (s *Server) roomSummary(w http.ResponseWriter, r *http.Request) {
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, roomSummaryResponse{
		RoomID:        room.Code,
		Name:          room.Name,
		HasController: s.registry.HasController(room.Code),
		ViewerCount:   s.registry.ViewerCount(room.Code),
		TimerCount:    len(room.Timers),
		ActiveTimerID: room.ActiveTimerID,
		CreatedAt:     room.CreatedAt,
	})
}

func (s *Server) roomTimers(w http.ResponseWriter, r *http.Request) {
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}
	now := s.clock.Now()
	out := make([]*models.Timer, len(room.Timers))
	for i, tm := range room.Timers {
		out[i] = timer.Derive(tm, now)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"timers": out})
}

func (s *Server) roomTimer(w http.ResponseWriter, r *http.Request) {
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}
	tm := room.Timer(r.PathValue("timerId"))
	if tm == nil {
		writeError(w, http.StatusNotFound, "Timer not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"timer": timer.Derive(tm, s.clock.Now())})
}

func (s *Server) loadRoom(w http.ResponseWriter, r *http.Request) (*models.Room, bool) {
	room, err := s.registry.GetRoom(r.Context(), r.PathValue("code"))
	switch {
	case err == nil:
		return room, true
	case errors.Is(err, rooms.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	default:
		log.Error().Err(err).Str("room", r.PathValue("code")).Msg("room lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("response write failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
