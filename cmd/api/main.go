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

	"github.com/joho/godotenv"
	"github.com/zhouzirui/haven/backend/internal/config"
	"github.com/zhouzirui/haven/backend/internal/handler"
	"github.com/zhouzirui/haven/backend/internal/lexicon"
	"github.com/zhouzirui/haven/backend/internal/service/chat"
	"github.com/zhouzirui/haven/backend/internal/service/conversation"
	"github.com/zhouzirui/haven/backend/internal/service/reaper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	lex, err := loadLexicon(cfg.Session.LexiconPath)
	if err != nil {
		log.Fatalf("failed to load lexicon: %v", err)
	}

	store := chat.NewStore()
	svc := conversation.NewService(conversation.Config{
		Store:      store,
		Lexicon:    lex,
		SessionTTL: cfg.Session.TTL,
	})

	var sessionReaper *reaper.Reaper
	if cfg.Session.ReaperEnabled {
		sessionReaper = reaper.New(svc, reaper.Config{Interval: cfg.Session.ReaperInterval})
		sessionReaper.Start(ctx)
		log.Printf("Session reaper started: interval=%s ttl=%s", cfg.Session.ReaperInterval, cfg.Session.TTL)
	} else {
		log.Println("Session reaper disabled by configuration")
	}

	router := handler.NewRouter(svc, handler.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DefaultUserID:  cfg.Server.DefaultUserID,
		MaxVoiceBytes:  cfg.Voice.MaxBytes,
	})

	startServer(ctx, cfg.Server, router)

	if sessionReaper != nil {
		sessionReaper.Stop()
	}
}

func loadLexicon(path string) (*lexicon.Lexicon, error) {
	if path == "" {
		log.Println("Using built-in lexicon")
		return lexicon.Default(), nil
	}

	lex, err := lexicon.Load(path)
	if err != nil {
		return nil, err
	}
	log.Printf("Lexicon loaded from %s: %d crisis keywords, %d reply rules", path, len(lex.Crisis.Keywords), len(lex.Rules))
	return lex, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Haven backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
