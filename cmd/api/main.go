package main

import (
	"context"
	"log"

	"wax-intake/config"
	"wax-intake/internal/captcha"
	"wax-intake/internal/domain/submission"
	"wax-intake/internal/formlog"
	"wax-intake/internal/handler"
	"wax-intake/internal/mailer"
	waxredis "wax-intake/internal/redis"
	"wax-intake/internal/repository"
	"wax-intake/internal/server"
	"wax-intake/internal/services"
	"wax-intake/internal/storage"
	"wax-intake/pkg/database"
	"wax-intake/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)
	defer l.Logger.Sync()

	ctx := context.Background()

	var repo repository.SubmissionRepository
	var store *storage.Client
	var admin *handler.AdminHandler

	if cfg.LocalDevMode {
		l.Warnf("LOCAL_DEV_MODE is on: storage, database and mail are skipped")
	} else {
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&submission.Submission{}); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		repo = repository.NewSubmissionRepository(db)
		admin = handler.NewAdminHandler(repo)

		store, err = storage.NewClient(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			if cfg.IsProduction() {
				log.Fatalf("Failed to initialize object storage: %v", err)
			}
			l.Warnf("object storage unavailable: %v", err)
			store = nil
		}
	}

	forms := formlog.NewWriter(cfg.FormsLogPath, l)
	defer forms.Close()

	var limiter waxredis.UploadLimiter
	if cfg.RedisAddr != "" {
		client, err := waxredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			if cfg.IsProduction() {
				log.Fatalf("Failed to connect to redis: %v", err)
			}
			l.Warnf("redis unavailable, falling back to in-process rate limiting: %v", err)
		} else {
			limiter = waxredis.NewRateLimiter(client, cfg.RateLimitMax, cfg.RateLimitWindow)
		}
	}
	if limiter == nil {
		limiter = waxredis.NewLocalRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	verifier := captcha.NewVerifier(cfg.RecaptchaSecret, cfg.RecaptchaMinScore)
	if !verifier.Enabled() {
		l.Warnf("reCAPTCHA secret not configured, verification disabled")
	}

	mail := mailer.New(mailer.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.MailFrom,
		To:   cfg.MailTo,
	})
	if mail == nil {
		l.Warnf("SMTP not configured, notifications disabled")
	}

	var objStore services.ObjectStore
	if store != nil {
		objStore = store
	}
	service := services.NewSubmissionService(objStore, repo, forms, cfg.LocalDevMode, l)

	var notifier handler.Notifier
	if mail != nil {
		notifier = mail
	}
	submissionHandler := handler.NewSubmissionHandler(
		verifier, service, notifier, cfg.UploadDir, cfg.LocalDevMode, cfg.IsProduction(), l,
	)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Submission: submissionHandler,
		Admin:      admin,
	}, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
