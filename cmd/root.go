package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/lukman83/pricehound/config"
	"github.com/lukman83/pricehound/internal/httputil"
	"github.com/lukman83/pricehound/internal/marketdata"
	"github.com/lukman83/pricehound/internal/ozon"
	"github.com/lukman83/pricehound/internal/stealth"
	"github.com/lukman83/pricehound/internal/wildberries"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pricehound",
	Short: "PriceHound - Wildberries/Ozon price watch bot",
	Long:  "A Telegram bot and CLI that watches marketplace prices and notifies when a product drops to a target price.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("data-dir", "", "Subscription database directory")
	rootCmd.PersistentFlags().String("delay-profile", "", "Scrape delay profile: cautious, normal, aggressive")
	rootCmd.PersistentFlags().Bool("respect-robots", true, "Respect robots.txt rules when scraping")
	rootCmd.PersistentFlags().Bool("headless", false, "Enable the headless-browser fallback for Ozon")
}

func initConfig() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	// Override from flags
	if v, _ := rootCmd.PersistentFlags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("delay-profile"); v != "" {
		cfg.DelayProfile = v
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("respect-robots"); !v {
		cfg.RespectRobots = false
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("headless"); v {
		cfg.EnableHeadless = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildScrapeClient creates the stealth-wrapped HTTP client used for
// Ozon page fetches.
func buildScrapeClient() *http.Client {
	transport := &stealth.Transport{
		Base: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
		},
		Robots:      stealth.NewRobotsChecker(&http.Client{Timeout: 10 * time.Second}, cfg.RespectRobots),
		Fingerprint: stealth.NewFingerprintPool(),
		Delay:       stealth.NewHumanDelay(stealth.DelayProfile(cfg.DelayProfile)),
		RateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
	return httputil.NewHTTPClient(transport, 30*time.Second)
}

// initMarketplaces registers all marketplace fetchers. The WB JSON
// mirrors get a plain client; per-mirror timeouts live inside the
// fetcher.
func initMarketplaces() {
	mirrorClient := httputil.NewHTTPClient(nil, 0)
	marketdata.Register(marketdata.Wildberries, wildberries.NewFetcher(mirrorClient))
	marketdata.Register(marketdata.Ozon, ozon.NewFetcher(buildScrapeClient(), cfg.EnableHeadless))
}
