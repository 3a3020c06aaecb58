// Package server exposes the game engine over a websocket JSON protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lifegame/life-server-go/internal/auth"
	"github.com/lifegame/life-server-go/internal/config"
	"github.com/lifegame/life-server-go/internal/content"
	"github.com/lifegame/life-server-go/internal/game"
	"github.com/lifegame/life-server-go/internal/repository"
	"github.com/lifegame/life-server-go/internal/session"
	"github.com/lifegame/life-server-go/internal/user"
	"go.uber.org/zap"
)

// Server is the websocket front end. It owns no game state; everything is
// delegated to the engine, managers, and repositories.
type Server struct {
	cfg     config.ServerConfig
	gameCfg config.GameConfig

	engine      *game.Engine
	sessions    *session.Manager
	users       *user.Manager
	resetTokens *auth.TokenStore
	games       *repository.GameRepository // nil when running without a database
	stats       *repository.StatsRepository

	hub      *hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu      sync.RWMutex
	owners  map[string]string // gameID -> userID
	catalog *content.Library
}

// New creates a server over the given collaborators. The repositories may be
// nil for a database-less dev instance; saving is then disabled.
func New(
	cfg config.ServerConfig,
	gameCfg config.GameConfig,
	engine *game.Engine,
	sessions *session.Manager,
	users *user.Manager,
	resetTokens *auth.TokenStore,
	games *repository.GameRepository,
	stats *repository.StatsRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:         cfg,
		gameCfg:     gameCfg,
		engine:      engine,
		sessions:    sessions,
		users:       users,
		resetTokens: resetTokens,
		games:       games,
		stats:       stats,
		hub:         newHub(logger),
		logger:      logger,
		owners:      make(map[string]string),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	engine.SetNotificationHandler(s.onNotification)
	return s
}

// SetCatalog attaches the card library, enabling the daily challenge op.
func (s *Server) SetCatalog(lib *content.Library) {
	s.mu.Lock()
	s.catalog = lib
	s.mu.Unlock()
}

// Start runs the websocket listener until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WebSocket.Path, s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	s.httpSrv = &http.Server{
		Addr:    s.cfg.WebSocket.Address,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("websocket server listening",
			zap.String("address", s.cfg.WebSocket.Address),
			zap.String("path", s.cfg.WebSocket.Path),
		)
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.closeAll()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, 64),
	}
	s.hub.register(c)

	go c.writePump(s.cfg.WebSocket.WriteTimeout, s.cfg.WebSocket.PingInterval)
	go c.readPump()
}

// onNotification forwards engine events to watching clients and persists
// finished games.
func (s *Server) onNotification(n game.Notification) {
	s.hub.pushToGame(n.GameID, Push{
		Op:     "event",
		GameID: n.GameID,
		Event:  n.Type,
		Data:   n.Data,
	})

	if n.Type == "GAME_ENDED" {
		s.finishGame(n.GameID)
	}
}

// finishGame saves the final snapshot and folds stats, then drops the game
// from the engine.
func (s *Server) finishGame(gameID string) {
	s.mu.RLock()
	userID := s.owners[gameID]
	s.mu.RUnlock()

	snap, err := s.engine.Snapshot(gameID)
	if err != nil {
		s.logger.Error("snapshot finished game", zap.String("game_id", gameID), zap.Error(err))
		return
	}

	if s.games != nil && userID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.games.SaveSnapshot(ctx, userID, snap); err != nil {
			s.logger.Error("save finished game", zap.String("game_id", gameID), zap.Error(err))
		}
		if s.stats != nil {
			victory := snap.Status == string(game.StatusVictory)
			if err := s.stats.RecordResult(ctx, userID, victory, snap.Stats); err != nil {
				s.logger.Error("record game result", zap.String("game_id", gameID), zap.Error(err))
			}
		}
	}

	s.engine.RemoveGame(gameID)
	s.mu.Lock()
	delete(s.owners, gameID)
	s.mu.Unlock()

	s.logger.Info("game finished",
		zap.String("game_id", gameID),
		zap.String("status", snap.Status),
		zap.Int("turn", snap.Turn),
	)
}

func (s *Server) setOwner(gameID, userID string) {
	s.mu.Lock()
	s.owners[gameID] = userID
	s.mu.Unlock()
}
