package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/db"
	"github.com/parley-chat/parley/internal/httpapi"
	"github.com/parley-chat/parley/internal/store/rabbitmq"
	"github.com/parley-chat/parley/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	hub := chat.NewHub()
	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// cross-instance event bus; optional in local dev
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(ctx); err != nil {
		log.Printf("redis unavailable, running single-instance: %v", err)
	} else {
		svc.WithBus(rds)
		go func() {
			if err := rds.Bridge(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("event bridge stopped: %v", err)
			}
		}()
	}
	defer rds.Close()

	// notification pipeline; optional in local dev
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit unavailable, notifications disabled: %v", err)
	} else {
		svc.WithJobQueue(pub)
		defer pub.Close()
	}

	// the shared room must exist before the first subscriber shows up
	if _, err := svc.EnsureBroadcast(ctx); err != nil {
		log.Fatalf("ensure broadcast room: %v", err)
	}

	r := httpapi.NewRouter(gdb, cfg, svc)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Printf("server started addr=%s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	// stop accepting requests, then drop every live subscription
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	hub.Close()
}
