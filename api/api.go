// Package api is the HTTP surface of the server: the status probe, offer
// negotiation, the still-frame message socket, the session lifecycle feed and
// the session listing.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"
	"github.com/shynome/colorcast/session"
	"github.com/shynome/colorcast/signaler/local"
	"github.com/shynome/colorcast/still"
)

const DefaultMaxMessageBytes = 16 << 20

type Config struct {
	// Signal carries offers to the accept loop of the media server.
	Signal    *local.Server
	Registry  *session.Registry
	Processor *still.Processor
	Feed      *Feed

	MaxMessageBytes int64
	Log             zerolog.Logger
}

type Handler struct {
	signal    *local.Server
	registry  *session.Registry
	processor *still.Processor
	feed      *Feed

	maxMessageBytes int64
	upgrader        websocket.Upgrader
	log             zerolog.Logger

	mux *http.ServeMux
}

var _ http.Handler = (*Handler)(nil)

func New(cfg Config) *Handler {
	h := &Handler{
		signal:          cfg.Signal,
		registry:        cfg.Registry,
		processor:       cfg.Processor,
		feed:            cfg.Feed,
		maxMessageBytes: cfg.MaxMessageBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: cfg.Log.With().Str("component", "api").Logger(),
		mux: http.NewServeMux(),
	}
	if h.maxMessageBytes <= 0 {
		h.maxMessageBytes = DefaultMaxMessageBytes
	}

	h.mux.HandleFunc("GET /{$}", h.index)
	h.mux.HandleFunc("GET /ws", h.serveSocket)
	if h.signal != nil {
		h.mux.HandleFunc("POST /offer", h.offer)
	}
	if h.registry != nil {
		h.mux.HandleFunc("GET /sessions", h.sessions)
		h.mux.HandleFunc("GET /sessions/{id}", h.session)
	}
	if h.feed != nil {
		h.mux.Handle("GET /events", h.feed.handler())
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cors(h.mux).ServeHTTP(w, r)
}

type status struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// index is the status probe, or the message socket when the request asks
// for an upgrade.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.serveSocket(w, r)
		return
	}
	writeJSON(w, http.StatusOK, status{Message: "Camera Color Frames", Status: "online"})
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) offer(w http.ResponseWriter, r *http.Request) {
	var offer webrtc.SessionDescription
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxMessageBytes)).Decode(&offer); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	answer, err := h.signal.Handshake(r.Context(), offer)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, answer)
	case errors.Is(err, local.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("offer failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func (h *Handler) sessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	s, ok := h.registry.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// cors allows every origin, method and header. Preflight requests are
// answered here and never reach next.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "*")
		if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
			header.Set("Access-Control-Allow-Headers", req)
		} else {
			header.Set("Access-Control-Allow-Headers", "*")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
