package main // Entry point package

import (
	"context"      // context for background recounts
	"database/sql" // sentinel errors from the database layer
	"log"          // Logging library
	"time"         // durations derived from config

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/volunteerapp/program-server/internal/config"     // Internal config loader
	"github.com/volunteerapp/program-server/internal/database"   // MySQL connection helper
	"github.com/volunteerapp/program-server/internal/feed"       // presence feed hub
	"github.com/volunteerapp/program-server/internal/handler"    // HTTP handlers
	"github.com/volunteerapp/program-server/internal/middleware" // rate limiting and response cache
	"github.com/volunteerapp/program-server/internal/presence"   // participant liveness tracking
	"github.com/volunteerapp/program-server/internal/queue"      // broker consumer
	"github.com/volunteerapp/program-server/internal/repository" // DB repositories
	"github.com/volunteerapp/program-server/internal/router"     // Internal router setup
	"github.com/volunteerapp/program-server/internal/share"      // share code/token resolution
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables rate limiting, the
	// response cache and cross-restart guest sessions, nothing else.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting, caching and session persistence degrade")
	}

	programs := repository.NewProgramRepo(db)
	items := repository.NewItemRepo(db)
	participants := repository.NewParticipantRepo(db)
	roles := repository.NewRoleRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	hub := feed.NewHub()
	sessions := presence.NewSessionStore(rdb)
	window := time.Duration(cfg.ActiveWindowMin) * time.Minute
	tracker := presence.NewTracker(programs, participants, sessions, hub, window)
	resolver := share.NewResolver(programs, cfg.Env, cfg.BaseURL, cfg.AppScheme)

	// Background consumer appending participant events to the log
	// file.  Runs its own reconnect loop for the life of the process.
	go func() {
		if err := queue.StartParticipantConsumer(); err != nil {
			log.Printf("participant consumer stopped: %v", err)
		}
	}()

	// Periodic recount of active programs so counters converge even
	// when clients vanish without a leave.
	sweeper := presence.StartRunner(window, func(ctx context.Context) error {
		date := time.Now().UTC().Format("2006-01-02")
		p, err := programs.GetTodayActive(ctx, date)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}
		_, err = tracker.Recount(ctx, p.ID)
		return err
	})
	defer sweeper.Stop()

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	auth := handler.NewAuthHandler(cfg, users, tokens)
	programH := handler.NewProgramHandler(programs, items)
	itemH := handler.NewItemHandler(items, programs)
	shareH := handler.NewShareHandler(resolver, programs)
	participantH := handler.NewParticipantHandler(participants, roles, tracker, programs)
	joinH := handler.NewJoinHandler(resolver, tracker, programs, participants, sessions)
	liveH := handler.NewLiveHandler(cfg, programs, items)
	feedH := handler.NewFeedHandler(hub, tracker, programs)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterPublic(e, joinH, participantH, liveH, cfg.JWTSecret)
	router.RegisterAdmin(e, programH, itemH, shareH, participantH, feedH, cfg.JWTSecret)
	router.RegisterVolunteer(e, participantH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
