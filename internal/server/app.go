package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/storage"
)

// App coordinates the HTTP listener, websocket session lifecycle, and
// room fan-out.
type App struct {
	cfg         config.ServerConfig
	store       storage.Store
	registry    *Registry
	broadcaster *Broadcaster
	upgrader    *websocket.Upgrader
	logger      zerolog.Logger

	httpSrv *http.Server
	baseCtx context.Context
}

// NewApp constructs a server instance using the provided dependencies.
func NewApp(cfg config.ServerConfig, store storage.Store, logger *zerolog.Logger) *App {
	registry := NewRegistry()
	a := &App{
		cfg:         cfg,
		store:       store,
		registry:    registry,
		broadcaster: NewBroadcaster(registry, logger),
		logger:      logger.With().Str("component", "server").Logger(),
		baseCtx:     context.Background(),
	}

	a.upgrader = &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     a.checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", a.serveWS)
	mux.HandleFunc("GET /rooms", a.listRooms)
	mux.HandleFunc("POST /rooms", a.createRoom)
	mux.HandleFunc("DELETE /rooms/{name}", a.deleteRoom)
	mux.HandleFunc("OPTIONS /rooms", a.preflight)
	mux.HandleFunc("OPTIONS /rooms/{name}", a.preflight)

	a.httpSrv = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: a.corsMiddleware(mux),
	}
	return a
}

// Registry exposes the membership registry, primarily for tests.
func (a *App) Registry() *Registry {
	return a.registry
}

// Run migrates storage and serves until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.baseCtx = ctx

	errCh := make(chan error, 1)
	go func() {
		err := a.httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	a.logger.Info().Str("addr", a.cfg.ListenAddr).Msg("server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.httpSrv.Shutdown(shCtx); err != nil {
			a.logger.Error().Err(err).Msg("shutdown failed")
			return err
		}
		a.logger.Info().Msg("server stopped")
		return nil
	}
}

// Handler returns the fully wired HTTP handler, for tests running the
// app under httptest.
func (a *App) Handler() http.Handler {
	return a.httpSrv.Handler
}

func (a *App) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := newSession(conn, &a.logger)
	sess.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("connection opened")

	// The request context ends when this handler returns; the session
	// instead lives on the server's run context.
	ctx, cancel := context.WithCancel(a.baseCtx)
	go func() {
		sess.writeLoop(ctx, a.cfg.PingInterval, a.cfg.WriteTimeout)
		cancel()
	}()

	go func() {
		defer func() {
			// Membership must be released before the peer can be the
			// target of any further broadcast.
			a.registry.Leave(sess.id)
			cancel()
			_ = conn.Close()
			sess.logger.Info().Msg("connection closed")
		}()
		sess.readLoop(ctx, a.cfg.ReadTimeout, a.cfg.MaxMessageBytes, a.handleEvent)
	}()
}
