package server

import (
	"errors"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"livecode/service"
	"livecode/service/stors/progstor"
)

const localPid = "pid"

func pidOf(c *fiber.Ctx) progstor.Pid {
	return c.Locals(localPid).(progstor.Pid)
}

func (s *Server) handlePidMiddleware(c *fiber.Ctx) error {
	pid, err := progstor.ParsePid(c.Params("pid"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	c.Locals(localPid, pid)
	return c.Next()
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.Redirect("/edit/"+string(s.repo.Default()), fiber.StatusFound)
}

func (s *Server) handleEditor(c *fiber.Ctx) error {
	page := programEditorPage(string(pidOf(c)))
	page.KeyRequired = s.keyRequired()
	return s.sendPage(c, "editor.html", page)
}

func (s *Server) handleGetSource(c *fiber.Ctx) error {
	return s.sendSource(c, pidOf(c))
}

func (s *Server) handleGetDefaultSource(c *fiber.Ctx) error {
	return s.sendSource(c, s.repo.Default())
}

func (s *Server) sendSource(c *fiber.Ctx, pid progstor.Pid) error {
	code, err := s.repo.Load(c.Context(), pid)
	if err != nil {
		return s.loadError(c, pid, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, "text/javascript; charset=utf-8")
	return c.SendString(code)
}

func (s *Server) handleStoreSource(c *fiber.Ctx) error {
	return s.storeSource(c, pidOf(c))
}

func (s *Server) handleStoreDefaultSource(c *fiber.Ctx) error {
	return s.storeSource(c, s.repo.Default())
}

func (s *Server) storeSource(c *fiber.Ctx, pid progstor.Pid) error {
	code := string(c.Body())
	if err := s.repo.Store(c.Context(), pid, code); err != nil {
		slog.Error("Failed to store program", "pid", pid, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store program"})
	}
	slog.Info("Program saved", "pid", pid, "content_length", len(code))
	s.bus.Publish(service.EventProgramSaved, string(pid), len(code), nil)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "OK"})
}

func (s *Server) handleCreateProgram(c *fiber.Ctx) error {
	code := string(c.Body())
	if code == "" {
		code = progstor.StarterCode
	}
	pid := progstor.NewPid()
	if err := s.repo.Store(c.Context(), pid, code); err != nil {
		slog.Error("Failed to create program", "pid", pid, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create program"})
	}
	slog.Info("Program created", "pid", pid)
	s.bus.Publish(service.EventProgramCreated, string(pid), len(code), nil)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "OK",
		"pid":     pid,
		"editurl": "/edit/" + string(pid),
	})
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	pids, err := s.repo.Search(c.Context(), c.Query("q"))
	if err != nil {
		slog.Error("Failed to search programs", "query", c.Query("q"), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to search programs"})
	}
	if pids == nil {
		pids = []progstor.Pid{}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"programs": pids})
}

func (s *Server) handlePreview(c *fiber.Ctx) error {
	pid := pidOf(c)
	if _, err := s.repo.Load(c.Context(), pid); err != nil {
		return s.loadError(c, pid, err)
	}
	return s.sendPage(c, "app.html", programAppPage(string(pid)))
}

func (s *Server) handleDefaultPreview(c *fiber.Ctx) error {
	return s.sendPage(c, "app.html", singletonAppPage(string(s.repo.Default())))
}

func (s *Server) sendPage(c *fiber.Ctx, name string, data any) error {
	body, err := s.pages.render(name, data)
	if err != nil {
		slog.Error("Failed to render page", "page", name, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to render page"})
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.Send(body)
}

func (s *Server) loadError(c *fiber.Ctx, pid progstor.Pid, err error) error {
	if errors.Is(err, progstor.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "program not found"})
	}
	slog.Error("Failed to load program", "pid", pid, "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load program"})
}

func (s *Server) handleReloadUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		pid, err := progstor.ParsePid(c.Params("pid"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		slog.Info("WebSocket connection request", "pid", pid)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (s *Server) handleReloadConn(conn *websocket.Conn) {
	pid := conn.Params("pid")
	client := s.hubs.Join(pid, conn)
	defer s.hubs.Leave(pid, client)

	// Viewers only listen; reads are drained to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Info("WebSocket connection closed", "pid", pid)
				return
			}
			slog.Debug("WebSocket read ended", "pid", pid, "err", err)
			return
		}
	}
}
