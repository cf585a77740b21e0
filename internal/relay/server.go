package relay

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"slices"
	"time"

	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	roomIDLength  = 8
	roomIDLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	createRetries = 5
)

type createRoomResponse struct {
	RoomID string `json:"roomID"`
}

type healthResponse struct {
	Status string `json:"status"`
	Rooms  int64  `json:"rooms"`
	Conns  int64  `json:"connections"`
}

// Server serves room bootstrap and the relay websocket.
type Server struct {
	hub      *Hub
	store    RoomStore
	upgrader websocket.Upgrader
}

// NewServer returns a server over hub and store. With no allowed origins,
// any origin may connect.
func NewServer(hub *Hub, store RoomStore, allowedOrigins []string) *Server {
	return &Server{
		hub:   hub,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowedOrigins) == 0 || origin == "" {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/create-room", s.createRoom)
	r.Get("/join-room", s.joinRoom)
	return r
}

// requestLogger logs each request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Rooms: s.hub.Rooms(), Conns: s.hub.Conns()})
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	for range createRetries {
		id, err := newRoomID()
		if err != nil {
			break
		}
		err = s.store.Create(r.Context(), id)
		if errors.Is(err, ErrRoomExists) {
			continue
		}
		if err != nil {
			slog.Error("creating room", "error", err)
			break
		}
		slog.Info("room created", "room", id)
		writeJSON(w, http.StatusOK, createRoomResponse{RoomID: id})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not create room"})
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomID")
	if roomID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "roomID is required"})
		return
	}

	ok, err := s.store.Exists(r.Context(), roomID)
	if err != nil {
		slog.Error("looking up room", "room", roomID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "room lookup failed"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrRoomNotFound.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "room", roomID, "error", err)
		return
	}

	client := newClient(s.hub, conn, roomID)
	if !s.hub.register(client) {
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// newRoomID returns roomIDLength random alphanumeric characters.
func newRoomID() (string, error) {
	b := make([]byte, roomIDLength)
	limit := big.NewInt(int64(len(roomIDLetters)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		b[i] = roomIDLetters[n.Int64()]
	}
	return string(b), nil
}

// Run serves the relay described by cfg until ctx ends.
func Run(ctx context.Context, cfg *config.RelayConfig) error {
	var store RoomStore
	if cfg.RedisAddr != "" {
		rs, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RoomTTL)
		if err != nil {
			return err
		}
		store = rs
		slog.Info("using redis room store", "addr", cfg.RedisAddr)
	} else {
		store = NewMemoryStore(cfg.RoomTTL)
	}
	defer store.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := NewHub()
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewServer(hub, store, cfg.AllowedOrigins).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	return nil
}
