package server

import (
	"time"

	"backend-pawmates/internal/auth"
	"backend-pawmates/internal/config"
	"backend-pawmates/internal/schedule"
	"backend-pawmates/internal/session"
	"backend-pawmates/internal/stats"
	"backend-pawmates/internal/stream"
	"backend-pawmates/internal/walk"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App       *fiber.App
	Cfg       config.Config
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Stream    *stream.Hub
	Schedules *schedule.Service
	limiter   *rateLimiter
	stop      chan struct{}
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	registerMetrics()

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(metricsMiddleware())

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      db,
		Redis:   redisClient,
		Stream:  stream.NewHub(redisClient),
		limiter: newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		stop:    make(chan struct{}),
	}
	app.Use(s.limiter.middleware())
	go s.limiter.cleanup(time.Minute, 3*time.Minute, s.stop)

	registerRoutes(s)
	return s
}

// Close stops the server's background workers.
func (s *Server) Close() {
	close(s.stop)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	statsSvc := stats.NewService(s.DB)
	walkSvc := walk.NewService(s.DB, statsSvc)
	recorder := session.NewRecorder()
	submitter := session.NewSubmitter(walkSvc, s.Redis, s.Cfg.SubmitTimeout())
	s.Schedules = schedule.NewService(s.DB, s.Stream)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	session.RegisterRoutes(s.App.Group("/sessions"), recorder, submitter, jwtMiddleware)
	walk.RegisterRoutes(s.App.Group("/walks"), walkSvc, jwtMiddleware)
	stats.RegisterRoutes(s.App.Group("/stats"), statsSvc, jwtMiddleware)
	schedule.RegisterRoutes(s.App.Group("/schedules"), s.Schedules, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
