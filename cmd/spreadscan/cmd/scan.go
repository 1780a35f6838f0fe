package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spreadscan/spreadscan"
	"github.com/spreadscan/spreadscan/pkg/arbitrage"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

var (
	scanClass        string
	scanMaxResults   int
	scanTaxRate      float64
	scanMinSpreadPct float64
	scanMinPrice     float64
	scanMaxPrice     float64
)

var scanCmd = &cobra.Command{
	Use:   "scan <query>",
	Short: "Scan marketplaces for arbitrage on a query",
	Long: `Scan searches every configured marketplace for the query, matches
listings that describe the same physical item, resolves a reference
value per item, and prints evaluated opportunities sorted by spread.`,
	Example: `  spreadscan scan "charizard psa 10" --class trading_card
  spreadscan scan "rolex submariner 126610LN" --class watch --min-spread-pct 10
  spreadscan scan "gucci marmont bag" --class luxury --max-price 2000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanClass, "class", string(listings.ClassTradingCard),
		"item class: trading_card, watch, or luxury")
	scanCmd.Flags().IntVar(&scanMaxResults, "max-results", 0,
		"cap listings fetched per source (0 = source default)")
	scanCmd.Flags().Float64Var(&scanTaxRate, "tax-rate", 0,
		"estimated sales tax rate (0 = default)")
	scanCmd.Flags().Float64Var(&scanMinSpreadPct, "min-spread-pct", constants.DefaultMinSpreadPct,
		"minimum spread percentage to count as arbitrage")
	scanCmd.Flags().Float64Var(&scanMinPrice, "min-price", 0, "minimum listing price")
	scanCmd.Flags().Float64Var(&scanMaxPrice, "max-price", 0, "maximum listing price")
}

func runScan(cmd *cobra.Command, args []string) error {
	class, err := listings.ParseItemClass(scanClass)
	if err != nil {
		return err
	}

	scanner, err := spreadscan.New()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.ScanTimeout)
	defer cancel()

	session, err := scanner.Scan(ctx, spreadscan.Request{
		Query:        strings.Join(args, " "),
		Class:        class,
		MaxResults:   scanMaxResults,
		TaxRate:      scanTaxRate,
		MinSpreadPct: scanMinSpreadPct,
		MinPrice:     scanMinPrice,
		MaxPrice:     scanMaxPrice,
	})
	if err != nil {
		return err
	}

	renderSession(session)
	return nil
}

func renderSession(session *arbitrage.Session) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTITLE\tALL-IN\tREFERENCE\tSPREAD\tSPREAD%\tARB")
	for _, opp := range session.Results {
		ref, spread := "-", "-"
		if opp.ReferencePrice.Resolved() {
			ref = fmt.Sprintf("$%.2f", *opp.ReferencePrice.Value)
		}
		if opp.Spread != nil {
			spread = fmt.Sprintf("$%.2f", *opp.Spread)
		}
		arb := ""
		if opp.IsArbitrage {
			arb = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t%s\t%s\t%.2f%%\t%s\n",
			opp.Listing.Source, truncate(opp.Listing.Title, 50),
			opp.AllInCost, ref, spread, opp.SpreadPct, arb)
	}
	_ = w.Flush()

	stats := session.Stats()
	fmt.Printf("\n%d listings, %d matches, %d arbitrage opportunities",
		stats.Count, len(session.Matches), stats.ArbitrageCount)
	if stats.ArbitrageCount > 0 {
		fmt.Printf(", $%.2f total potential profit", stats.TotalPotentialProfit)
	}
	fmt.Println()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
