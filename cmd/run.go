package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
	"golang.org/x/time/rate"

	"github.com/lukman83/pricehound/internal/chat"
	"github.com/lukman83/pricehound/internal/health"
	"github.com/lukman83/pricehound/internal/refparse"
	"github.com/lukman83/pricehound/internal/store"
	"github.com/lukman83/pricehound/internal/telegram"
	"github.com/lukman83/pricehound/internal/watch"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot, the watch scheduler and the health endpoint",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	// Missing credential is startup-fatal, not a runtime condition.
	if err := cfg.RequireBotToken(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	initMarketplaces()

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := chat.NewEngine(refparse.New(nil), db, logger)

	bot, err := telegram.New(cfg.BotToken, engine, logger)
	if err != nil {
		return err
	}

	scheduler := watch.NewScheduler(db, bot, watch.SchedulerConfig{
		Interval:      time.Duration(cfg.CheckIntervalMinutes) * time.Minute,
		MaxConcurrent: cfg.MaxConcurrent,
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		Format:        chat.NotificationText,
	}, logger)

	healthSrv := health.New(":"+cfg.HTTPPort, logger)

	hook := (&sutureslog.Handler{Logger: logger}).MustHook()
	supervisor := suture.New("pricehound", suture.Spec{EventHook: hook})
	supervisor.Add(bot)
	supervisor.Add(scheduler)
	supervisor.Add(healthSrv)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("pricehound starting", "interval_minutes", cfg.CheckIntervalMinutes)

	err = supervisor.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("pricehound stopped")
	return nil
}
