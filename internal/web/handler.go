package web

import (
	"github.com/flosch/pongo2/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/wichananm65/recommender-web/internal/lookup"
	"github.com/wichananm65/recommender-web/internal/metrics"
)

const sessionCookie = "lookup_session"

// Handler serves the lookup page and the fragments for each form event.
type Handler struct {
	sessions  *Sessions
	templates *Templates
	logger    zerolog.Logger
}

func NewHandler(sessions *Sessions, templates *Templates, logger zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, templates: templates, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/", h.index)
	app.Post("/lookup/identifier", h.identifierChanged)
	app.Post("/lookup/suggestion", h.selectSuggestion)
	app.Post("/lookup/submit", h.submit)
}

func (h *Handler) controller(c *fiber.Ctx) *lookup.Controller {
	current := c.Cookies(sessionCookie)
	ctrl, id := h.sessions.Get(current)
	if id != current {
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return ctrl
}

func (h *Handler) index(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	return h.send(c, h.templates.index, ctrl.View(), false)
}

// identifierChanged returns the suggestion list and, out of band, the reset
// results container.
func (h *Handler) identifierChanged(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.IdentifierChanged(c.UserContext(), c.FormValue("reviewerId"))
	return h.send(c, h.templates.suggestions, ctrl.View(), false, h.templates.results)
}

// selectSuggestion returns the cleared suggestion list and, out of band, the
// identifier input holding the chosen value.
func (h *Handler) selectSuggestion(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.SelectSuggestion(c.FormValue("value"))
	return h.send(c, h.templates.suggestions, ctrl.View(), false, h.templates.identifier)
}

func (h *Handler) submit(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	outcome := ctrl.Submit(c.UserContext(), c.FormValue("reviewerId"), c.FormValue("numItems"))
	metrics.RecordLookup(outcome.String())
	h.logger.Debug().Str("outcome", outcome.String()).Msg("lookup submitted")
	return h.send(c, h.templates.results, ctrl.View(), false)
}

// send renders main, followed by each extra template rendered out of band.
func (h *Handler) send(c *fiber.Ctx, main *pongo2.Template, v lookup.View, oob bool, extra ...*pongo2.Template) error {
	out, err := render(main, v, oob)
	if err != nil {
		h.logger.Error().Err(err).Msg("render failed")
		return c.Status(fiber.StatusInternalServerError).SendString("failed to render template")
	}
	for _, tpl := range extra {
		b, err := render(tpl, v, true)
		if err != nil {
			h.logger.Error().Err(err).Msg("render failed")
			return c.Status(fiber.StatusInternalServerError).SendString("failed to render template")
		}
		out = append(out, b...)
	}
	c.Type("html", "utf-8")
	return c.Send(out)
}
