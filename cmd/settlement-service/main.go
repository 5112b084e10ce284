package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-settlement/internal/api/handlers"
	"auction-settlement/internal/config"
	"auction-settlement/internal/domain"
	"auction-settlement/internal/infrastructure/leader"
	"auction-settlement/internal/infrastructure/mysql"
	"auction-settlement/internal/infrastructure/redis"
	"auction-settlement/internal/services"
	"auction-settlement/pkg/logger"
	"auction-settlement/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (defaults to ./config.yaml if present)")
	runOnce := flag.String("run-once", "", "run a single pass and exit: closing, payment or all")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	log.Info("Starting Auction Settlement Service", "config", cfg.GetConfigString())

	loc, err := cfg.Location()
	if err != nil {
		log.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := utils.InitializeMysql(ctx, cfg.MySQL)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()
	log.Info("Connected to MySQL")

	// Initialize repositories and collaborators
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	paymentRepo := mysql.NewMySQLPaymentRepository(db)
	clock := services.NewSystemClock(loc)
	sender := redis.NewRedisNotificationSender(rdb, cfg.Settlement.NotificationChannel, clock)

	closer := services.NewAuctionCloserWithConfig(services.AuctionCloserConfig{
		Auctions:       auctionRepo,
		Sender:         sender,
		Clock:          clock,
		CloseAfterDays: cfg.Settlement.CloseAfterDays,
		Log:            log,
	})
	paymentScheduler := services.NewPaymentSchedulerWithConfig(services.PaymentSchedulerConfig{
		Auctions:  auctionRepo,
		Payments:  paymentRepo,
		Evaluator: services.NewHighestBidEvaluator(),
		Clock:     clock,
		Log:       log,
	})

	if *runOnce != "" {
		if err := runPassesOnce(*runOnce, cfg.Settlement.RunTimeout, closer, paymentScheduler, log); err != nil {
			log.Error("Settlement run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.Key, cfg.Leader.TTL)
	scheduler := services.NewCronSettlementScheduler(closer, paymentScheduler, leaderElection, cfg.Instance.ID,
		services.SettlementSchedule{
			Close:      cfg.Settlement.CloseSchedule,
			Payment:    cfg.Settlement.PaymentSchedule,
			RunTimeout: cfg.Settlement.RunTimeout,
			Location:   loc,
		}, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency_human":"${latency_human}"}` + "\n",
	}))
	e.Use(middleware.Recover())

	settlementHandler := handlers.NewSettlementHandler(closer, paymentScheduler, leaderElection, cfg.Instance.ID, log)
	settlementHandler.Register(e.Group("/api/v1"))

	e.GET("/health", func(c echo.Context) error {
		isLeader, err := leaderElection.IsLeader(c.Request().Context(), cfg.Instance.ID)
		if err != nil {
			log.Warn("Health check could not read leadership", "error", err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"service":     "auction-settlement",
			"timestamp":   time.Now().Format(time.RFC3339),
			"instance_id": cfg.Instance.ID,
			"leader":      isLeader,
		})
	})

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	if err := scheduler.Start(runCtx); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Try to become leader
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			became, err := leaderElection.BecomeLeader(runCtx, cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
			} else if became {
				log.Info("Became settlement leader", "instance_id", cfg.Instance.ID)
			}

			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting settlement admin server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down settlement service...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopRun()
	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Settlement service stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// runPassesOnce serves external schedulers that invoke the service per tick.
func runPassesOnce(which string, timeout time.Duration, closer, payments domain.BatchRunner, log logger.Logger) error {
	var runners []domain.BatchRunner
	switch which {
	case "closing":
		runners = []domain.BatchRunner{closer}
	case "payment":
		runners = []domain.BatchRunner{payments}
	case "all":
		runners = []domain.BatchRunner{closer, payments}
	default:
		return fmt.Errorf("unknown pass %q", which)
	}

	for _, runner := range runners {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		report, err := runner.Run(ctx)
		cancel()
		if err != nil {
			return err
		}
		log.Info("Settlement pass completed",
			"pass", report.Pass, "succeeded", report.Succeeded, "failed", len(report.Failures()))
	}
	return nil
}
