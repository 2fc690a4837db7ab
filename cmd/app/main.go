package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/wichananm65/recommender-web/internal/config"
	"github.com/wichananm65/recommender-web/internal/logging"
	"github.com/wichananm65/recommender-web/internal/lookup"
	"github.com/wichananm65/recommender-web/internal/metrics"
	"github.com/wichananm65/recommender-web/internal/operator"
	"github.com/wichananm65/recommender-web/internal/rating"
	"github.com/wichananm65/recommender-web/internal/recommended"
	"github.com/wichananm65/recommender-web/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(logging.Config{})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := fiber.New(fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	setupCORS(app)
	app.Use(logging.Middleware(logger))

	db := mustOpenDB(ctx, cfg, logger)
	if db != nil {
		defer db.Close()
	}
	store, operators := openStores(ctx, db, logger)

	if cfg.RatingsCSV != "" {
		seedRatings(ctx, store, cfg, logger)
	}

	recommendService := recommended.NewService(store, cfg.Model, logger)
	if _, err := recommendService.Train(ctx); err != nil {
		// the endpoint answers 503 until /train succeeds
		logger.Warn().Err(err).Msg("initial training skipped")
	}
	recommendedHandler := recommended.NewHandler(recommendService)
	recommendedHandler.RegisterPublicRoutes(app)

	templates, err := web.LoadTemplates()
	if err != nil {
		logger.Fatal().Err(err).Msg("load templates")
	}
	client := lookup.NewHTTPClient(cfg.RecommendURL, nil)
	suggestions := suggestionSource(cfg, store)
	sessions := web.NewSessions(cfg.SessionTTL, func() *lookup.Controller {
		return lookup.NewController(client, suggestions, logger)
	})
	go sessions.Run(ctx, time.Minute)
	web.NewHandler(sessions, templates, logger).RegisterPublicRoutes(app)

	app.Get("/metrics", metrics.Handler())

	operatorService := operator.NewService(operators, cfg.JWTSecret, cfg.TokenTTL)
	if cfg.OperatorUser != "" {
		if err := operatorService.EnsureOperator(ctx, cfg.OperatorUser, cfg.OperatorPassword); err != nil {
			logger.Fatal().Err(err).Msg("register operator")
		}
	}
	operator.NewHandler(operatorService).RegisterPublicRoutes(app)

	guard, err := operator.Middleware(cfg.JWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("protected routes")
	}
	app.Use(guard)
	recommendedHandler.RegisterProtectedRoutes(app)

	logger.Info().Str("addr", cfg.Addr).Str("recommend_url", cfg.RecommendURL).Msg("listening")
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

// mustOpenDB returns nil when DATABASE_URL is unset.
func mustOpenDB(ctx context.Context, cfg config.Config, logger zerolog.Logger) *sql.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return db
}

// openStores returns the Postgres stores when db is set and the in-memory
// stores otherwise.
func openStores(ctx context.Context, db *sql.DB, logger zerolog.Logger) (rating.Repository, operator.Repository) {
	if db == nil {
		logger.Info().Msg("DATABASE_URL is not set, using in-memory stores")
		return rating.NewInMemoryRepository(nil), operator.NewInMemoryRepository(nil)
	}

	ratings := rating.NewPostgresRepository(db)
	if err := ratings.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure ratings schema")
	}
	operators := operator.NewPostgresRepository(db)
	if err := operators.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure operators schema")
	}
	return ratings, operators
}

func seedRatings(ctx context.Context, store rating.Repository, cfg config.Config, logger zerolog.Logger) {
	path := cfg.RatingsCSV
	f, err := os.Open(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("open ratings csv")
	}
	defer f.Close()

	ratings, err := rating.LoadCSV(f, cfg.Model.MinRating, cfg.Model.MaxRating)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("parse ratings csv")
	}
	n, err := store.InsertMany(ctx, ratings)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed ratings")
	}
	logger.Info().Int("inserted", n).Str("path", path).Msg("ratings seeded")
}

func suggestionSource(cfg config.Config, store rating.Repository) lookup.SuggestionSource {
	if cfg.SuggestionSource == "store" {
		return lookup.NewStoreSuggestions(store, cfg.SuggestionLimit)
	}
	return lookup.StaticSuggestions(lookup.DefaultSuggestions)
}
