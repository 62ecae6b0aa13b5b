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
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/postscript/backend/internal/config"
	"github.com/zhouzirui/postscript/backend/internal/handler"
	"github.com/zhouzirui/postscript/backend/internal/service/ai"
	"github.com/zhouzirui/postscript/backend/internal/service/mail"
	"github.com/zhouzirui/postscript/backend/internal/service/session"
	"github.com/zhouzirui/postscript/backend/internal/service/speech"
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

	var deps session.Dependencies
	services := handler.Services{}

	// Initialize AI flows
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			deps.Chat = aiService
			deps.Tone = aiService
			services.Tone = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	// Initialize Speech service
	if cfg.Speech.Enabled {
		speechService := speech.NewService(cfg.Speech.TTS())
		deps.Speech = speechService
		services.Speech = speechService
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("语音服务凭证未配置，跳过语音功能初始化")
	}
	services.VoiceClone = speech.NewVoiceCloner()

	deps.Mail = mail.NewServiceFromConfig(cfg.Mail)
	log.Printf("mail export transport: %s", cfg.Mail.Transport)

	services.Sessions = session.NewManager(deps, session.Options{
		QuotaLimit:     cfg.Session.QuotaLimit,
		FlowTimeout:    cfg.Session.FlowTimeout,
		ToneAdaptation: cfg.Session.ToneAdaptation,
	})

	router := handler.NewRouter(cfg.Server.AllowedOrigins, services)

	if err := runServer(ctx, cfg.Server, router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Postscript backend listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
