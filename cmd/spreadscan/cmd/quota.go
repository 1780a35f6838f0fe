package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spreadscan/spreadscan"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show per-source API quota usage",
	Long: `Quota prints the recorded call counts for every metered source in the
current usage window, with the window start and remaining allowance.`,
	RunE: runQuota,
}

func init() {
	rootCmd.AddCommand(quotaCmd)
}

func runQuota(_ *cobra.Command, _ []string) error {
	scanner, err := spreadscan.New()
	if err != nil {
		return err
	}

	states := scanner.Quota()
	if len(states) == 0 {
		fmt.Println("No metered API usage recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tUSED\tLIMIT\tREMAINING\tWINDOW START")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			s.SourceID, s.Count, s.Limit, s.Remaining(),
			s.WindowStart.Format("2006-01-02"))
	}
	return w.Flush()
}
