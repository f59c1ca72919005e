package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/multierr"

	"livecode/config"
	"livecode/service"
	"livecode/service/stors/progstor"
	"livecode/webembed"
)

// Server serves program sources, the editor and preview pages, and the
// live-reload sockets.
type Server struct {
	cfg   *config.Config
	repo  progstor.Repo
	bus   *service.Bus
	hubs  *HubManager
	pages *pages
}

func New(cfg *config.Config, repo progstor.Repo, bus *service.Bus) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   cfg,
		repo:  repo,
		bus:   bus,
		hubs:  NewHubManager(),
		pages: p,
	}
	s.hubs.Listen(bus)
	return s, nil
}

func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             config.MaxProgramSize,
		DisableStartupMessage: true,
	})
	loggerCfg := logger.ConfigDefault
	loggerCfg.Format = "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${queryParams} | ${error}\n"
	app.Use(logger.New(loggerCfg))

	writes := []fiber.Handler{limiter.New(limiter.Config{
		Max: max(s.cfg.APIRPM, 2),
	})}
	if s.keyRequired() {
		writes = append(writes, keyauth.New(keyauth.Config{
			KeyLookup: "header:X-API-Key",
			Validator: s.validateKey,
		}))
	}

	app.Get("/", s.handleRoot)
	app.Get("/edit/:pid", s.handlePidMiddleware, s.handleEditor)

	app.Get("/programs", s.handleSearch)
	app.Post("/program", append(writes, s.handleCreateProgram)...)
	app.Use("/program/:pid", s.handlePidMiddleware)
	app.Get("/program/:pid/script.js", s.handleGetSource)
	app.Get("/program/:pid", s.handlePreview)
	app.Post("/program/:pid", append(writes, s.handleStoreSource)...)

	app.Get("/update", s.handleGetDefaultSource)
	app.Post("/update", append(writes, s.handleStoreDefaultSource)...)
	app.Get("/preview", s.handleDefaultPreview)

	app.Get("/ws/program/:pid", s.handleReloadUpgrade)
	app.Get("/ws/program/:pid", websocket.New(s.handleReloadConn))

	app.Use("/www", filesystem.New(filesystem.Config{
		Root: http.FS(webembed.Static),
	}))
	return app
}

// keyRequired reports whether writes must carry an X-API-Key header.
func (s *Server) keyRequired() bool {
	return s.cfg.APIKeyAuth && len(s.cfg.APIKeys) > 0
}

func (s *Server) validateKey(c *fiber.Ctx, key string) (bool, error) {
	hashedKey := sha256.Sum256([]byte(key))
	for _, k := range s.cfg.APIKeys {
		hashedAPIKey := sha256.Sum256([]byte(k))
		if subtle.ConstantTimeCompare(hashedKey[:], hashedAPIKey[:]) == 1 {
			return true, nil
		}
	}
	return false, keyauth.ErrMissingOrMalformedAPIKey
}

// Serve runs the HTTP server, and the SFTP front door when enabled, until
// ctx is done.
func Serve(ctx context.Context, cfg *config.Config, repo progstor.Repo, bus *service.Bus) error {
	s, err := New(cfg, repo, bus)
	if err != nil {
		return err
	}
	app := s.App()

	var sshSrv *SSHServer
	if cfg.SSHEnabled {
		sshSrv, err = NewSSHServer(cfg, repo, bus)
		if err != nil {
			return err
		}
		if err := sshSrv.Listen(fmt.Sprintf("%s:%d", cfg.SSHHost, cfg.SSHPort)); err != nil {
			return err
		}
		go sshSrv.Serve()
	}

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("Failed to start API server", "err", runErr)
	}

	slog.Info("API server is shutting down")
	if err := app.ShutdownWithTimeout(config.ShutdownWait); err != nil {
		runErr = multierr.Append(runErr, fmt.Errorf("failed to shutdown API server: %w", err))
	}
	if sshSrv != nil {
		runErr = multierr.Append(runErr, sshSrv.Close())
	}
	s.hubs.CloseAll()
	if runErr == nil {
		slog.Info("API server shutdown successfully")
	}
	return runErr
}
