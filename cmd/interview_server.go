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
	repo "intervia/internal/repo"
	ext "intervia/internal/utils/extractor"
	"intervia/internal/utils/sse"
	"intervia/pkg/database/client"
	"intervia/pkg/event"
	rabbit "intervia/pkg/rabbit/pkg"
)

// startInterview runs the interview-session service: the HTTP API over the
// interview aggregate plus the evaluation-completed consumer.
func startInterview(logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := client.Open(client.ReadConfig())
	if err != nil {
		logger.Fatal("Failed to connect to mongo", zap.Error(err))
	}

	repository := repo.New(db)
	bus := rabbit.New(rabbit.ReadConfig(), logger)
	notifier := sse.NewRegistry()

	interviews := feat.New(repository, bus, notifier, logger)

	go func() {
		err := bus.Subscribe(ctx, "interview-service",
			[]string{event.TopicEvaluationCompleted}, interviews.ReceiveEvaluation)
		if err != nil {
			logger.Error("Failed to subscribe to evaluation events", zap.Error(err))
		}
	}()

	startSSE(notifier, logger)

	extractor := ext.New(viper.GetString("services.token"))
	interviewHandler := handler.NewInterviewHandler(interviews, extractor, logger)

	r := gin.Default()
	interviewHandler.Register(r)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", viper.GetString("server.port")),
		Handler: r,
	}

	go func() {
		logger.Info("Starting interview HTTP server", zap.String("port", viper.GetString("server.port")))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve interview HTTP server", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down interview HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Interview HTTP server stopped")
}
