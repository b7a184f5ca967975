package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blocksignal/blocksignal/internal/configs"
	"github.com/blocksignal/blocksignal/internal/data"
	"github.com/blocksignal/blocksignal/internal/data/coingecko"
	"github.com/blocksignal/blocksignal/internal/data/storage"
	"github.com/blocksignal/blocksignal/internal/handlers"
	"github.com/blocksignal/blocksignal/internal/ratelimit"
	"github.com/blocksignal/blocksignal/internal/scoring"
	"github.com/blocksignal/blocksignal/internal/service"
)

var (
	flagconf string

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
)

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf config.json")
}

func main() {
	flag.Parse()

	// 加载配置
	config, err := configs.Load(flagconf)
	if err != nil {
		log.Error("Error loading config", "err", err)
		return
	}

	log.Debug("Loaded config", "config", config)

	// 初始化各个组件
	client := coingecko.NewClient(
		time.Duration(config.Upstream.SearchTimeoutSeconds)*time.Second,
		time.Duration(config.Upstream.DetailsTimeoutSeconds)*time.Second,
		log,
	)

	log.Debug("init market data client")

	var store data.ScorecardStore
	if config.Database.ConnStr != "" {
		pgStore, err := storage.NewPostgresStore(config.Database.ConnStr)
		if err != nil {
			log.Error("Error creating storage", "err", err)
			return
		}
		store = pgStore
		log.Debug("init postgres store")
	} else {
		store = storage.NewMemoryStore()
		log.Debug("init memory store")
	}

	limiter := ratelimit.NewLimiter(time.Duration(config.RateLimit.WindowSeconds) * time.Second)

	log.Debug("init rate limiter")

	svc := service.New(
		client,
		store,
		scoring.NewEngine(),
		limiter,
		time.Duration(config.Cache.TTLMinutes)*time.Minute,
		log,
	)

	log.Debug("init service")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 后台清理限流表
	go limiter.Sweep(ctx, time.Duration(config.RateLimit.SweepIntervalSeconds)*time.Second)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handlers.New(svc).Register(r)

	log.Info("listening", "addr", config.HTTPAddr)

	if err := r.Run(config.HTTPAddr); err != nil {
		log.Error("System error", "err", err)
	}
}
