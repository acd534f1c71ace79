package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukman83/pricehound/internal/marketdata"
	"github.com/lukman83/pricehound/internal/refparse"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [reference]",
	Short: "Resolve a product link or article to its current title and price",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().String("format", "json", "Output format: json, card")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	initMarketplaces()

	ref, err := refparse.New(nil).Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse reference: %w", err)
	}

	fetcher, err := marketdata.Get(ref.Marketplace)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	snap, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "card":
		printSnapshotCard(ref, snap)
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			marketdata.Ref
			Title string `json:"title"`
			Price int64  `json:"price"`
		}{Ref: ref, Title: snap.Title, Price: snap.Price})
	}
	return nil
}

func printSnapshotCard(ref marketdata.Ref, snap *marketdata.Snapshot) {
	fmt.Fprintf(os.Stdout, " %s\n", snap.Title)
	fmt.Fprintf(os.Stdout, "    Price: %d ₽  |  Marketplace: %s  |  Article: %s\n",
		snap.Price, ref.Marketplace, ref.ProductID)
	if snap.Strategy != "" {
		fmt.Fprintf(os.Stdout, "    Via: %s\n", snap.Strategy)
	}
	fmt.Fprintf(os.Stdout, "    %s\n", snap.URL)
}
