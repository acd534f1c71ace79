package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/lukman83/pricehound/internal/chat"
	"github.com/lukman83/pricehound/internal/store"
	"github.com/lukman83/pricehound/internal/telegram"
	"github.com/lukman83/pricehound/internal/watch"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one watch cycle immediately and exit",
	Long:  "Checks every active subscription once, sending notifications where the target is met. Useful for ops and cron-style setups.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	bot, err := telegram.New(cfg.BotToken, nil, logger)
	if err != nil {
		return err
	}

	scheduler := watch.NewScheduler(db, bot, watch.SchedulerConfig{
		Interval:      time.Duration(cfg.CheckIntervalMinutes) * time.Minute,
		MaxConcurrent: cfg.MaxConcurrent,
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		Format:        chat.NotificationText,
	}, logger)

	scheduler.RunCycle(cmd.Context())
	return nil
}
