package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vietanh2810/campreg-api/internal/api"
	"github.com/vietanh2810/campreg-api/internal/config"
	"github.com/vietanh2810/campreg-api/internal/db"
	"github.com/vietanh2810/campreg-api/internal/logger"
	"github.com/vietanh2810/campreg-api/internal/notify"
	"github.com/vietanh2810/campreg-api/internal/reminder"
	"github.com/vietanh2810/campreg-api/internal/repository/dao"
)

const (
	configPath      = "./cmd/app/config.yml"
	shutdownTimeout = 15 * time.Second
)

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	if conf.API.LogLevel != "" {
		if err = logger.SetLevel(conf.API.LogLevel); err != nil {
			return fmt.Errorf("failed to set log level -> %w", err)
		}
	}

	err = config.Watch(configPath, func(c *config.AppConfig) {
		if err := logger.SetLevel(c.API.LogLevel); err != nil {
			zap.L().Warn("ignoring log level from reloaded config", zap.Error(err))
			return
		}
		zap.L().Info("config reloaded", zap.String("log_level", logger.Level().String()))
	}, func(err error) {
		zap.L().Warn("failed to reload config", zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("failed to watch config -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	if err = dao.InitTables(postgresDB); err != nil {
		return fmt.Errorf("failed to migrate tables -> %w", err)
	}

	dispatcher := notify.NewDispatcher(notify.LogSender{}, conf.Engine.NotificationQueueSize)

	s := api.NewServer(conf, postgresDB, dispatcher)

	var scheduler *reminder.Scheduler
	if conf.Reminder.Enabled {
		scheduler, err = reminder.NewScheduler(conf.Reminder.Schedule, conf.Reminder.LeadDays, s.Registrations)
		if err != nil {
			return fmt.Errorf("failed to initialize reminders -> %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + conf.API.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
		return nil
	})

	if scheduler != nil {
		scheduler.Start()
	}

	g.Go(func() error {
		<-gCtx.Done()
		zap.L().Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("srv.Shutdown -> %w", err))
		}
		if scheduler != nil {
			if err := scheduler.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("scheduler.Stop -> %w", err))
			}
		}
		// Saves the pending note drafts.
		s.Registrations.Close()
		if err := dispatcher.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher.Close -> %w", err))
		}

		return errors.Join(errs...)
	})

	return g.Wait()
}
