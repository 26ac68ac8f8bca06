package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"intervia/internal/utils/sse"
)

func startSSE(notifier *sse.Registry, logger *zap.Logger) {
	r := gin.Default()
	r.GET("/sse/evaluations", func(c *gin.Context) {
		SSEEvaluationStream(c, notifier)
	})

	sseAddr := fmt.Sprintf(":%s", viper.GetString("server.sseport"))

	// Runs alongside the main API on its own port
	go func() {
		logger.Info("Starting SSE server", zap.String("addr", sseAddr))
		if err := r.Run(sseAddr); err != nil {
			logger.Error("Failed to start SSE server", zap.Error(err))
		}
	}()
}

// SSEEvaluationStream pushes answer-evaluated hints to a connected client.
// Hints are advisory: a dropped or missed message only means the client falls
// back to polling the interview resource.
func SSEEvaluationStream(c *gin.Context, notifier *sse.Registry) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(400, gin.H{"error": "user_id is required"})
		return
	}

	// Set SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	ch := make(chan map[string]interface{}, 10)
	notifier.Register(userID, ch)

	initialMsg := map[string]interface{}{
		"type":      "connection_established",
		"userId":    userID,
		"timestamp": time.Now().Unix(),
	}
	if jsonData, err := json.Marshal(initialMsg); err == nil {
		fmt.Fprintf(c.Writer, "data: %s\n\n", string(jsonData))
		c.Writer.Flush()
	}

	clientGone := c.Request.Context().Done()

	// Heartbeat ticker to keep connection alive
	heartbeat := time.NewTicker(60 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-clientGone:
			notifier.Unregister(userID)
			return

		case <-heartbeat.C:
			heartbeatMsg := map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Unix(),
			}
			if jsonData, err := json.Marshal(heartbeatMsg); err == nil {
				fmt.Fprintf(c.Writer, "data: %s\n\n", string(jsonData))
				c.Writer.Flush()
			}

		case notification := <-ch:
			if jsonData, err := json.Marshal(notification); err == nil {
				fmt.Fprintf(c.Writer, "data: %s\n\n", string(jsonData))
				c.Writer.Flush()
			}
		}
	}
}
