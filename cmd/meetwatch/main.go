// meetwatch tails the participant event socket of a running API node,
// reconnecting with the backoff configured under channel.*.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trackmeet/api/channel"
	"github.com/trackmeet/api/config"
	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
)

func main() {
	var url, origin string
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "event socket URL")
	flag.StringVar(&origin, "origin", "http://localhost:8080", "handshake origin")
	flag.Parse()

	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := channel.New(channel.NewWebSocketDialer(url, origin), channel.Options{
		BaseDelay:   config.GetDuration("channel.baseDelay"),
		MaxDelay:    config.GetDuration("channel.maxDelay"),
		MaxAttempts: config.GetInt("channel.maxAttempts"),
		BufferSize:  config.GetInt("channel.bufferSize"),
		OnEvent: func(e model.Event) {
			fmt.Printf("%s  %-22s %s\n", e.Timestamp.Format(time.RFC3339), e.Type, string(e.Payload))
		},
	})
	defer ch.Close()
	ch.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
