package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/qa-forum-api/internal/apidocs"
	"github.com/iliyamo/qa-forum-api/internal/config"
	"github.com/iliyamo/qa-forum-api/internal/database"
	"github.com/iliyamo/qa-forum-api/internal/handler"
	"github.com/iliyamo/qa-forum-api/internal/logging"
	"github.com/iliyamo/qa-forum-api/internal/middleware"
	"github.com/iliyamo/qa-forum-api/internal/queue"
	"github.com/iliyamo/qa-forum-api/internal/repository"
	"github.com/iliyamo/qa-forum-api/internal/router"
	"github.com/iliyamo/qa-forum-api/internal/service"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName,
		database.PoolConfig{MaxOpen: cfg.DBMaxOpen})
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("apply migrations")
	}

	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	} else if rlCfg.Backend == "redis" || cacheCfg.Enabled {
		log.Warn("redis unavailable: using in-process rate limiting, response cache disabled")
	}

	var bg sync.WaitGroup
	lim := buildLimiters(ctx, &bg, rlCfg, rdb)

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub = queue.NewAsyncPublisher(queue.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue), 256, log)
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Queue: cfg.EventsQueue, Dir: cfg.ActivityLogDir, Log: log}
		bg.Add(1)
		go func() {
			defer bg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("activity consumer stopped")
			}
		}()
	}
	events := handler.Events{Pub: pub, Log: log}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	auth := service.NewAuthService(users, tokens, service.AuthConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		BcryptCost:    cfg.BcryptCost,
	}, log)
	bg.Add(1)
	go func() {
		defer bg.Done()
		auth.RunJanitor(ctx, cfg.TokenCleanupInterval)
	}()

	questions := repository.NewQuestionRepo(db)
	answers := repository.NewAnswerRepo(db)
	votes := repository.NewVoteRepo(db)

	docs, err := apidocs.Load()
	if err != nil {
		log.WithError(err).Fatal("load api docs")
	}

	e := echo.New()
	cache := middleware.ResponseCache(cacheCfg, rdb, log)
	router.Setup(e, log, lim, middleware.CacheInvalidator(cacheCfg, rdb, log))
	router.RegisterRoutes(e, db)
	router.RegisterDocs(e, docs)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), cfg.JWTSecret)
	router.RegisterQuestions(e, &handler.QuestionHandler{
		Questions:         questions,
		Answers:           answers,
		Votes:             votes,
		Events:            events,
		EmptyListNotFound: cfg.EmptyListNotFound,
	}, cfg.JWTSecret, lim, cache, log)
	router.RegisterAnswers(e, &handler.AnswerHandler{
		Answers: answers,
		Votes:   votes,
		Events:  events,
	}, cfg.JWTSecret, lim, cache, log)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if err := pub.Close(); err != nil {
		log.WithError(err).Error("close event publisher")
	}
	bg.Wait()
}

// buildLimiters creates the three tiers.  In-process windows get a sweeper
// tied to ctx.
func buildLimiters(ctx context.Context, bg *sync.WaitGroup, cfg config.RateLimitConfig, rdb *redis.Client) router.Limiters {
	if !cfg.Enabled {
		return router.Limiters{}
	}
	mk := func(rule config.RateLimitRule) middleware.Limiter {
		l := middleware.NewLimiter(cfg, rule, rdb)
		if w, ok := l.(*middleware.SlidingWindow); ok {
			bg.Add(1)
			go func() {
				defer bg.Done()
				w.RunSweeper(ctx, cfg.SweepInterval)
			}()
		}
		return l
	}
	return router.Limiters{
		Global: mk(cfg.Global),
		Write:  mk(cfg.Write),
		Vote:   mk(cfg.Vote),
	}
}
