package httpapi

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/adapters/xlsx"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/blob"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/exchange"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) registerExchange(api fiber.Router) {
	api.Get("/export/xlsx", s.exportWorkbook)
	api.Get("/export/:kind", s.export)
	api.Post("/import", s.importEnvelope)

	archives := api.Group("/archives", s.requireArchive)
	archives.Get("/", s.listArchives)
	archives.Get("/entry", s.loadArchive)
	archives.Post("/restore", s.restoreArchive)
	archives.Post("/:kind", s.saveArchive)
}

func parseKind(raw string) (exchange.Kind, error) {
	kind := exchange.Kind(raw)
	if !kind.Valid() {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown export type %q", raw))
	}
	return kind, nil
}

func parseMode(raw string) (exchange.Mode, error) {
	switch mode := exchange.Mode(raw); mode {
	case "", exchange.ModeReplace, exchange.ModeMerge:
		return mode, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown import mode %q", raw))
	}
}

func (s *Server) export(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return err
	}
	env, err := exchange.Export(s.svc.State(), kind, s.now())
	if err != nil {
		return err
	}
	raw, err := exchange.Encode(env)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="timetable-%s-%s.json"`, kind, env.ExportedAt.Format("20060102")))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(raw)
}

func (s *Server) exportWorkbook(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, core.NewView(s.svc.State())); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="timetable.xlsx"`)
	return c.Send(buf.Bytes())
}

func (s *Server) importEnvelope(c *fiber.Ctx) error {
	mode, err := parseMode(c.Query("mode"))
	if err != nil {
		return err
	}
	env, err := exchange.Decode(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return opResult(c, exchange.Import(c.UserContext(), s.svc, env, mode))
}

func (s *Server) requireArchive(c *fiber.Ctx) error {
	if s.archive == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "archive storage not configured")
	}
	return c.Next()
}

func (s *Server) listArchives(c *fiber.Ctx) error {
	var kind exchange.Kind
	if raw := c.Query("kind"); raw != "" {
		k, err := parseKind(raw)
		if err != nil {
			return err
		}
		kind = k
	}
	infos, err := s.archive.List(c.UserContext(), kind)
	if err != nil {
		return err
	}
	return c.JSON(infos)
}

func (s *Server) saveArchive(c *fiber.Ctx) error {
	kind, err := parseKind(c.Params("kind"))
	if err != nil {
		return err
	}
	info, err := s.archive.Save(c.UserContext(), s.svc.State(), kind, s.now())
	if errors.Is(err, blob.ErrExists) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

func (s *Server) archivedEnvelope(c *fiber.Ctx) (exchange.Envelope, error) {
	key := c.Query("key")
	if key == "" {
		return exchange.Envelope{}, fiber.NewError(fiber.StatusBadRequest, "key required")
	}
	env, err := s.archive.Load(c.UserContext(), key)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		return exchange.Envelope{}, fiber.NewError(fiber.StatusNotFound, err.Error())
	case err != nil:
		return exchange.Envelope{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return env, nil
}

func (s *Server) loadArchive(c *fiber.Ctx) error {
	env, err := s.archivedEnvelope(c)
	if err != nil {
		return err
	}
	return c.JSON(env)
}

func (s *Server) restoreArchive(c *fiber.Ctx) error {
	mode, err := parseMode(c.Query("mode"))
	if err != nil {
		return err
	}
	env, err := s.archivedEnvelope(c)
	if err != nil {
		return err
	}
	return opResult(c, exchange.Import(c.UserContext(), s.svc, env, mode))
}
