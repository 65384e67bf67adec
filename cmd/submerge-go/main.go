package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/John-Robertt/submerge-go/internal/config"
	"github.com/John-Robertt/submerge-go/internal/httpapi"
	"github.com/John-Robertt/submerge-go/internal/store"
)

func main() {
	// .env is optional; real deployments configure the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using environment")
	}
	cfg := config.Load()

	listen := flag.String("listen", cfg.Listen, "HTTP 监听地址")
	readHeaderTimeout := flag.Duration("read-header-timeout", 5*time.Second, "HTTP ReadHeaderTimeout（请求头读取超时）")
	feedTimeout := flag.Duration("feed-timeout", 60*time.Second, "单次聚合请求的总超时（包含全部远程拉取）")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "收到退出信号后的优雅退出等待时间")
	flag.Parse()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres store: %v", err)
		}
		defer pg.Close()
		st = pg
		log.Printf("using postgres store")
	} else {
		st = store.NewMemory()
		log.Printf("using in-memory store (set SUBMERGE_DATABASE_URL to persist groups)")
	}

	srv := &http.Server{
		Addr: *listen,
		Handler: httpapi.NewHandlerWithOptions(httpapi.Options{
			Store:         st,
			AdminToken:    cfg.AdminToken,
			FeedTimeout:   *feedTimeout,
			FetchTimeout:  cfg.FetchTimeout,
			FetchParallel: cfg.FetchParallel,
		}),
		ReadHeaderTimeout: *readHeaderTimeout,
	}

	log.Printf("listening on http://%s", *listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			_ = srv.Close()
		}

		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}
}
