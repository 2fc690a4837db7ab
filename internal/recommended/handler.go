package recommended

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/wichananm65/recommender-web/internal/metrics"
	"github.com/wichananm65/recommender-web/internal/model"
	"github.com/wichananm65/recommender-web/internal/rating"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/health", h.health)
	app.Post("/recommend", h.recommend)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/train", h.train)
	app.Post("/ratings", h.importRatings)
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

func (h *Handler) recommend(c *fiber.Ctx) error {
	start := time.Now()
	status := fiber.StatusOK
	defer func() {
		metrics.RecordRecommend(strconv.Itoa(status), time.Since(start))
	}()

	payload := new(Request)
	if err := c.BodyParser(payload); err != nil {
		status = fiber.StatusBadRequest
		return c.Status(status).JSON(fiber.Map{"message": "invalid json body"})
	}
	if err := validate.Struct(payload); err != nil {
		status = fiber.StatusBadRequest
		return c.Status(status).JSON(fiber.Map{"message": "reviewerId and a non-negative integer numItems are required"})
	}
	numItems, err := payload.NumItems.Int()
	if err != nil {
		status = fiber.StatusBadRequest
		return c.Status(status).JSON(fiber.Map{"message": "numItems is out of range"})
	}

	recs, err := h.service.Recommend(c.UserContext(), payload.ReviewerID, numItems)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUnknownReviewer):
			status = fiber.StatusNotFound
			return c.Status(status).JSON(fiber.Map{"message": "reviewer not found"})
		case errors.Is(err, ErrModelNotTrained):
			status = fiber.StatusServiceUnavailable
			return c.Status(status).JSON(fiber.Map{"message": "model is not trained yet"})
		default:
			status = fiber.StatusInternalServerError
			return c.Status(status).JSON(fiber.Map{"message": err.Error()})
		}
	}
	return c.JSON(Response{Recommendations: recs})
}

func (h *Handler) train(c *fiber.Ctx) error {
	res, err := h.service.Train(c.UserContext())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoRatings):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "no ratings stored"})
		case errors.Is(err, rating.ErrOutOfRange):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	h.service.logger.Info().Str("subject", tokenSubject(c)).Msg("training triggered")
	return c.JSON(res)
}

// importRatings accepts a CSV upload in the `file` form field.
func (h *Handler) importRatings(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "file is required"})
	}
	f, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	defer f.Close()

	min, max := h.service.Bounds()
	ratings, err := rating.LoadCSV(f, min, max)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	n, err := h.service.Import(c.UserContext(), ratings)
	if err != nil {
		if errors.Is(err, rating.ErrOutOfRange) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"imported": n})
}

func tokenSubject(c *fiber.Ctx) string {
	tok, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
