package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	feat "intervia/internal/features"
	"intervia/internal/handler"
	sv "intervia/internal/service"
	"intervia/pkg/event"
	rabbit "intervia/pkg/rabbit/pkg"
	redis "intervia/pkg/redis/pkg"
)

// startEngine runs the AI-capability service: the voice webhook with its call
// saga, plus the answer-evaluation consumer backed by the worker pool.
func startEngine(logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := sv.NewHTTPEngine(logger)
	interviewClient := sv.NewInterviewClient(logger)
	questionClient := sv.NewQuestionClient(logger)

	orc := handler.NewOrchestrator(interviewClient, questionClient, engine, logger)

	watchdogTimeout := viper.GetDuration("watchdog.timeout")
	if watchdogTimeout <= 0 {
		watchdogTimeout = 10 * time.Minute
	}
	watchdog := handler.NewCallWatchdog(logger, watchdogTimeout, orc.FinalizeStaleCall)
	defer watchdog.Shutdown()

	bus := rabbit.New(rabbit.ReadConfig(), logger)
	dedup := redis.New(redis.ReadConfig())

	pool := feat.NewEvaluationWorkerPool(
		viper.GetInt("worker.count"),
		viper.GetInt("worker.max_tasks_per_worker"),
		viper.GetInt("worker.max_task_wait_seconds"),
	)
	evaluator := feat.NewEvaluator(engine, bus, dedup, pool, logger)
	pool.Start(evaluator)
	defer pool.Stop()

	go func() {
		err := bus.Subscribe(ctx, "engine-service",
			[]string{event.TopicAnswerSubmitted}, evaluator.ReceiveAnswer)
		if err != nil {
			logger.Error("Failed to subscribe to answer events", zap.Error(err))
		}
	}()

	webhook := handler.NewWebhookHandler(orc, watchdog, logger)

	r := gin.Default()
	webhook.Register(r)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", viper.GetString("server.engineport")),
		Handler: r,
	}

	go func() {
		logger.Info("Starting engine HTTP server", zap.String("port", viper.GetString("server.engineport")))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve engine HTTP server", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down engine HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Engine HTTP server stopped")
}
