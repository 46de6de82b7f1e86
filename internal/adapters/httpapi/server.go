// Package httpapi exposes the scheduling service over a Fiber JSON API.
package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/exchange"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// DefaultBodyLimit caps request bodies; full exports of a large school stay well below it.
const DefaultBodyLimit = 8 << 20

// Options configures the HTTP surface. Zero values are usable.
type Options struct {
	Logger logrus.FieldLogger
	// Gatherer backs GET /metrics when set.
	Gatherer prometheus.Gatherer
	// Archive enables the /api/archives routes when set.
	Archive   *exchange.Archive
	Now       func() time.Time
	BodyLimit int
}

// Server holds the handler dependencies.
type Server struct {
	svc     *core.Service
	log     logrus.FieldLogger
	archive *exchange.Archive
	now     func() time.Time
}

// New builds the Fiber application with every route registered.
func New(svc *core.Service, opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	s := &Server{svc: svc, log: opts.Logger, archive: opts.Archive, now: opts.Now}

	app := fiber.New(fiber.Config{
		ErrorHandler:          s.errorHandler,
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		// Route params become map keys and ids held by the service.
		Immutable: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(s.requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "timetable"})
	})
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	s.registerTimetable(api)
	s.registerGroups(api)
	s.registerParking(api)
	s.registerHistory(api)
	s.registerRegistry(api)
	s.registerValidation(api)
	s.registerExchange(api)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})
	return app
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   c.Response().StatusCode(),
			"duration": time.Since(start).String(),
			"ip":       c.IP(),
		}).Debug("HTTP Request")
		return err
	}
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	entry := s.log.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"status": code,
	})
	if code >= fiber.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Debug("Request rejected")
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

// opResult writes an OpResult: 200 on success, 422 otherwise.
func opResult(c *fiber.Ctx, res domain.OpResult) error {
	if !res.Success {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return c.JSON(res)
}

// boolResult maps the boolean slot operations onto OpResult.
func boolResult(c *fiber.Ctx, ok bool, failure string) error {
	if ok {
		return opResult(c, domain.OpResult{Success: true})
	}
	return opResult(c, domain.OpResult{Message: failure})
}

func badRequest(format string, err error) error {
	return fiber.NewError(fiber.StatusBadRequest, format+": "+err.Error())
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return badRequest("invalid body", err)
	}
	return nil
}

// slotParams reads :class, :day and :period.
func slotParams(c *fiber.Ctx) (string, int, int, error) {
	day, err := c.ParamsInt("day")
	if err != nil {
		return "", 0, 0, badRequest("invalid day", err)
	}
	period, err := c.ParamsInt("period")
	if err != nil {
		return "", 0, 0, badRequest("invalid period", err)
	}
	return c.Params("class"), day, period, nil
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0, badRequest("invalid "+key, err)
	}
	return n, nil
}
