// Mock AI relay for local development. Echoes the incoming message back
// inside the structured reply envelope so the main server and the console
// client can be exercised without a real completion backend.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"character-chat-server/internal/logger"
)

type receiveMsgRequest struct {
	Message         string `json:"message"`
	SenderSituation string `json:"sender_situation"`
}

type mockReply struct {
	Situation string `json:"situation"`
	Message   string `json:"message"`
	Heart     int    `json:"Heart"`
}

type receiveMsgResponse struct {
	Status string    `json:"status"`
	Msg    mockReply `json:"msg"`
}

func main() {
	port := flag.String("port", "9000", "listen port")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "debug", Encoding: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/api/receive_msg", func(c *gin.Context) {
		var req receiveMsgRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": "invalid request body"})
			return
		}

		sender := c.GetHeader("sender")
		if sender == "" {
			sender = "anonymous"
		}

		situation := req.SenderSituation
		if situation == "" {
			situation = "The room is quiet while they wait for a reply."
		}

		resp := receiveMsgResponse{
			Status: "ok",
			Msg: mockReply{
				Situation: situation,
				Message:   fmt.Sprintf("You said: %q. Tell me more.", req.Message),
				Heart:     1,
			},
		}

		log.Info("Mock reply served",
			zap.String("sender", sender),
			zap.Int("message_len", len(req.Message)),
		)
		c.JSON(http.StatusOK, resp)
	})

	addr := ":" + *port
	log.Info("Mock relay listening", zap.String("address", addr))
	if err := router.Run(addr); err != nil {
		log.Fatal("Mock relay stopped", zap.Error(err))
	}
}
