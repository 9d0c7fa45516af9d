package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dxblostfound/lostfound/internal/utils"
	"github.com/dxblostfound/lostfound/pkg/dashboard"
	"github.com/dxblostfound/lostfound/pkg/matching"
	"github.com/dxblostfound/lostfound/pkg/render"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show every reported item with its current candidate matches.",
	RunE: func(cmd *cobra.Command, args []string) error {
		kindFlag, _ := cmd.Flags().GetString("kind")
		outputFlags, _ := cmd.Flags().GetString("output")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		withMatches, _ := cmd.Flags().GetBool("matches")
		asJSON, _ := cmd.Flags().GetBool("json")
		asTable, _ := cmd.Flags().GetBool("table")
		summary, _ := cmd.Flags().GetBool("summary")

		var kinds []matching.Kind
		if kindFlag == "" || kindFlag == "all" {
			kinds = []matching.Kind{matching.KindLost, matching.KindFound}
		} else {
			k, err := matching.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			kinds = []matching.Kind{k}
		}
		if err := render.ValidateFlags(outputFlags); err != nil {
			return err
		}

		client, err := backendClient()
		if err != nil {
			return err
		}
		classifier, err := classifierFor(siteDashboard, client)
		if err != nil {
			return err
		}

		board := dashboard.New(client, classifier, utils.Log)
		defer board.Close()
		ledger, err := board.Load(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case asJSON:
			return render.WriteJSON(out, ledger)
		case summary:
			return render.PrintSummary(out, ledger)
		}

		for _, kind := range kinds {
			if asTable {
				fmt.Fprintf(out, "%s items\n%s\n", kind.Title(), render.LedgerTable(ledger, kind))
				continue
			}
			opts := render.Options{Flags: outputFlags, Delimiter: delimiter, WithMatches: withMatches}
			if err := render.PrintLedger(out, ledger, kind, opts); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringP("kind", "k", "all", "Items to show: lost, found or all")
	historyCmd.Flags().StringP("output", "o", "ikwtsp", "Output flags. Supported: i (id), k (kind), d (description), w (where), t (when), s (best status), p (best percent), u (image url)")
	historyCmd.Flags().StringP("delimiter", "d", " ", "Delimiter character to use for txt output format")
	historyCmd.Flags().BoolP("matches", "m", false, "Print each item's matches below it")
	historyCmd.Flags().Bool("json", false, "Print the whole ledger as JSON")
	historyCmd.Flags().Bool("table", false, "Print one table per kind")
	historyCmd.Flags().Bool("summary", false, "Print item and match counts only")
}
