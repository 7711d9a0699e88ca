package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/moinmakda/ChemoCareAI/internal/config"
	"github.com/moinmakda/ChemoCareAI/internal/domain/advisor"
	"github.com/moinmakda/ChemoCareAI/internal/domain/clinical"
	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/internal/domain/identity"
	"github.com/moinmakda/ChemoCareAI/internal/domain/patient"
	"github.com/moinmakda/ChemoCareAI/internal/domain/treatment"
	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/internal/platform/cache"
	"github.com/moinmakda/ChemoCareAI/internal/platform/db"
	"github.com/moinmakda/ChemoCareAI/internal/platform/gemini"
	"github.com/moinmakda/ChemoCareAI/internal/platform/middleware"
	"github.com/moinmakda/ChemoCareAI/internal/platform/notification"
	"github.com/moinmakda/ChemoCareAI/pkg/validate"
)

// aiPrefix gets the longer timeout, the larger body limit and its own rate
// limiter.
const aiPrefix = "/api/v1/ai"

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	var (
		revoked auth.RevocationStore
		checks  []db.Check
	)
	if cfg.RedisURL != "" {
		rc, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		revoked = cache.NewRevocationStore(rc)
		checks = append(checks, db.Check{Name: "redis", Ping: rc.Ping})
		logger.Info().Msg("token revocation backed by redis")
	} else {
		mem := auth.NewMemoryRevocationStore()
		defer mem.Close()
		revoked = mem
		logger.Warn().Msg("REDIS_URL not set, token revocation is per-process")
	}

	recommender, aiOpts, closeRecommender, err := buildRecommender(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure recommender")
	}
	defer closeRecommender()
	logger.Info().Str("recommender", recommender.Name()).Msg("recommender ready")

	e := newRouter(cfg, pool, revoked, recommender, aiOpts, checks, logger)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// buildRecommender picks the recommendation backend named by RECOMMENDER.
// The returned func releases the backend's resources.
func buildRecommender(cfg *config.Config, logger zerolog.Logger) (dosing.Recommender, advisor.Options, func(), error) {
	switch cfg.Recommender {
	case config.RecommenderGemini:
		client, err := gemini.NewClient(gemini.Config{
			APIKey:       cfg.GeminiAPIKey,
			Model:        cfg.GeminiModel,
			Timeout:      cfg.GeminiTimeout(),
			RateLimitRPM: cfg.GeminiRateLimit,
		})
		if err != nil {
			return nil, advisor.Options{}, nil, fmt.Errorf("gemini client: %w", err)
		}
		opts := advisor.Options{Provider: gemini.Provider, Model: client.Model(), Configured: true}
		return gemini.NewRecommender(client, logger), opts, client.Close, nil
	case config.RecommenderLocal, "":
		return dosing.NewLocal(), advisor.Options{Provider: "Rule engine", Configured: true}, func() {}, nil
	default:
		return nil, advisor.Options{}, nil, fmt.Errorf("unknown recommender %q", cfg.Recommender)
	}
}

// aiRateLimit falls back to the middleware defaults when the configured rate
// is not positive.
func aiRateLimit(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.AIRateLimitRPS,
		BurstSize:         cfg.AIRateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return rl
}

func newRouter(cfg *config.Config, pool *pgxpool.Pool, revoked auth.RevocationStore,
	recommender dosing.Recommender, aiOpts advisor.Options, checks []db.Check, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "4M", aiPrefix))
	e.Use(middleware.RequestTimeout(
		time.Duration(cfg.RequestTimeout)*time.Second,
		cfg.GeminiTimeout()+10*time.Second,
		aiPrefix,
	))

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AppName, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(), cfg.ResetTokenTTL())
	e.Use(auth.JWTMiddleware(issuer, auth.AuthSkipper))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": version,
		})
	})
	e.GET("/health/ready", db.ReadinessHandler(pool, checks...))

	templates := notification.NewTemplateEngine()
	mailer := notification.NewMailer(notification.NewLogEmailSender(logger), templates)

	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewDoctorRepoPG(pool),
		identity.NewNurseRepoPG(pool),
		issuer, revoked, mailer, logger,
		identity.Options{AppName: cfg.AppName, FrontendURL: cfg.FrontendURL, ResetTTL: cfg.ResetTokenTTL()},
	)
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	clinicalSvc := clinical.NewService(
		clinical.NewVitalRepoPG(pool),
		clinical.NewSymptomRepoPG(pool),
		clinical.NewAppointmentRepoPG(pool),
		clinical.NewNotificationRepoPG(pool),
		patientSvc, identitySvc, templates, mailer, logger,
		clinical.Options{CareTeamEmail: cfg.CareTeamEmail},
	)
	treatmentSvc := treatment.NewService(
		treatment.NewProtocolTemplateRepoPG(pool),
		treatment.NewPlanRepoPG(pool),
		treatment.NewCycleRepoPG(pool),
		patientSvc, identitySvc, clinicalSvc, pool, logger,
	)
	advisorSvc := advisor.NewService(recommender, patientSvc, treatmentSvc, logger, aiOpts)

	api := e.Group("/api/v1", db.ConnMiddleware(pool))
	identity.NewHandler(identitySvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	treatment.NewHandler(treatmentSvc).RegisterRoutes(api)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(api)
	advisor.NewHandler(advisorSvc).RegisterRoutes(api, middleware.RateLimit(aiRateLimit(cfg)))

	return e
}
