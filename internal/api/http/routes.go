package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-proxy/internal/common"
	"github.com/i474232898/weather-proxy/internal/weather"
)

var validate = validator.New()

const (
	cacheHit  = "HIT"
	cacheMiss = "MISS"
)

// NewApp builds the Fiber app with error handling, middleware and all routes.
func NewApp(service *weather.Service) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-proxy",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestID())
	app.Use(requestLogger())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-proxy",
		})
	})

	RegisterRoutes(app, service)
	return app
}

// errorHandler renders every error as {"error": message}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	app.Post("/api/weather", func(c *fiber.Ctx) error {
		var req weatherRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.Current(c.UserContext(), req.City, *req.Timestamp)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		status := cacheMiss
		if res.Hit {
			status = cacheHit
		}
		c.Set("X-Cache", status)
		c.Locals(localsCache, status)

		return c.JSON(res.Payload)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/cache", func(c *fiber.Ctx) error {
		keys := service.Entries()
		names := make([]string, 0, len(keys))
		for _, k := range keys {
			names = append(names, k.String())
		}
		return c.JSON(fiber.Map{
			"entries": len(keys),
			"keys":    names,
		})
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		var q evictQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		service.Evict(q.City, q.Timestamp)
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// weatherRequest is the JSON body of POST /api/weather.
type weatherRequest struct {
	City      string  `json:"city" validate:"required"`
	Timestamp *uint64 `json:"timestamp" validate:"required"`
}

func (r *weatherRequest) bind(c *fiber.Ctx) error {
	if err := c.BodyParser(r); err != nil {
		return errors.New("invalid JSON body")
	}
	r.City = common.NormalizeCity(r.City)
	return validate.Struct(r)
}

// evictQuery holds query parameters for DELETE /api/v1/cache.
type evictQuery struct {
	City      string `validate:"required"`
	Timestamp uint64
}

func (q *evictQuery) bind(c *fiber.Ctx) error {
	q.City = common.NormalizeCity(c.Query("city"))
	if err := validate.Struct(q); err != nil {
		return err
	}

	ts, err := strconv.ParseUint(c.Query("timestamp"), 10, 64)
	if err != nil {
		return errors.New("timestamp must be unix seconds")
	}
	q.Timestamp = ts
	return nil
}
