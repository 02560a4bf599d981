package main

import (
	"context"
	"log"
	"os"

	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Muhsin-Gun/event-API/internal/config"
	apphttp "github.com/Muhsin-Gun/event-API/internal/http"
	"github.com/Muhsin-Gun/event-API/internal/mailer"
	"github.com/Muhsin-Gun/event-API/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	var mail mailer.Service
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTP)
	} else {
		logger.Warn("SMTP not configured; reset links are returned in API responses")
	}

	st, err := storage.FromEnv(context.Background())
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	logger.Info("storage ready", "driver", st.Driver)

	r := apphttp.NewRouter(apphttp.Deps{
		Cfg:     cfg,
		DB:      db,
		Logger:  logger,
		Mailer:  mail,
		Storage: st.Storage,
	})

	logger.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
