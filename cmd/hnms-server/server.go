package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hnms/hnms/internal/config"
	"github.com/hnms/hnms/internal/domain/appointment"
	"github.com/hnms/hnms/internal/domain/hospital"
	"github.com/hnms/hnms/internal/domain/patient"
	"github.com/hnms/hnms/internal/domain/user"
	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/auth"
	"github.com/hnms/hnms/internal/platform/db"
	"github.com/hnms/hnms/internal/platform/events"
	"github.com/hnms/hnms/internal/platform/metrics"
	"github.com/hnms/hnms/internal/platform/middleware"
	"github.com/hnms/hnms/internal/platform/openapi"
)

// routerDeps is everything newRouter needs. Handlers may be built on top of
// stub services in tests as long as no request reaches them.
type routerDeps struct {
	cfg          *config.Config
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	tokens       auth.Verifier
	conns        db.Acquirer
	pinger       db.Pinger
	poolStats    func() *db.PoolStats
	users        *user.Handler
	patients     *patient.Handler
	appointments *appointment.Handler
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg != nil && cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}

func newRouter(d routerDeps) *echo.Echo {
	cfg := d.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(d.logger, cfg.IsDev())

	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.Metrics(d.metrics))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(d.pinger, d.poolStats))
	if cfg.MetricsEnabled && d.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.metrics.Handler()))
	}

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}

	api := e.Group("/api")
	api.Use(middleware.RateLimit(rl))
	api.Use(auth.Authenticate(d.tokens, auth.AuthSkipper))
	api.Use(skipPublic(db.ConnMiddleware(d.conns), "/api/docs"))
	api.Use(middleware.Audit(d.logger, d.metrics))

	d.users.RegisterRoutes(api)
	d.patients.RegisterRoutes(api)
	d.appointments.RegisterRoutes(api)

	gen := openapi.NewGenerator("Hospital Network Management API", version, "/", e.Routes, auth.IsPublicPath)
	describeRoutes(gen)
	gen.RegisterRoutes(api)

	return e
}

// skipPublic bypasses mw for requests under any of the given path prefixes.
func skipPublic(mw echo.MiddlewareFunc, prefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := mw(next)
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, p := range prefixes {
				if len(path) >= len(p) && path[:len(p)] == p {
					return next(c)
				}
			}
			return wrapped(c)
		}
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		m.RegisterPoolGauges(func() (int32, int32, int32) {
			s := pool.Stat()
			return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
		})
	}

	var pub events.Publisher = events.NewLogPublisher(logger)
	if cfg.EventsEnabled() {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing appointment events to kafka")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	hasher := auth.NewHasher(cfg.BcryptCost)

	hospitalSvc := hospital.NewService(hospital.NewRepoPG(pool))
	userSvc := user.NewService(user.NewRepoPG(pool), hospitalSvc, hasher, tokens, m)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), hospitalSvc)
	appointmentSvc := appointment.NewService(appointment.NewRepoPG(pool), events.NewEmitter(pub, logger, m), m)

	e := newRouter(routerDeps{
		cfg:          cfg,
		logger:       logger,
		metrics:      m,
		tokens:       tokens,
		conns:        pool,
		pinger:       pool,
		poolStats:    func() *db.PoolStats { return db.GetPoolStats(pool) },
		users:        user.NewHandler(userSvc),
		patients:     patient.NewHandler(patientSvc),
		appointments: appointment.NewHandler(appointmentSvc),
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
