package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dxblostfound/lostfound/internal/utils"
	"github.com/dxblostfound/lostfound/pkg/backend"
	"github.com/dxblostfound/lostfound/pkg/catalog"
	"github.com/dxblostfound/lostfound/pkg/matching"
	"github.com/dxblostfound/lostfound/pkg/render"
	"github.com/dxblostfound/lostfound/pkg/submission"
)

var submitCmd = &cobra.Command{
	Use:       "submit lost|found",
	Short:     "Report a lost or found item and list its candidate matches.",
	Long:      "Report a lost or found item with a photo, where and when, then list the candidates the backend returns.",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{string(matching.KindLost), string(matching.KindFound)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := matching.ParseKind(args[0])
		if err != nil {
			return err
		}

		form, err := formFromFlags(cmd)
		if err != nil {
			return err
		}

		outputFlags, _ := cmd.Flags().GetString("output")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		asJSON, _ := cmd.Flags().GetBool("json")
		asTable, _ := cmd.Flags().GetBool("table")
		if err := render.ValidateFlags(outputFlags); err != nil {
			return err
		}

		client, err := backendClient()
		if err != nil {
			return err
		}
		classifier, err := classifierFor(string(kind), client)
		if err != nil {
			return err
		}

		flow, err := submission.NewFlow(kind, client, classifier, submission.Options{Log: utils.Log})
		if err != nil {
			return err
		}
		defer flow.Close()
		if err := flow.SetForm(form); err != nil {
			return err
		}

		res, err := submitWithRetry(cmd.Context(), flow, cmd.InOrStdin(), cmd.ErrOrStderr(), interactive())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s item reported (id %s). %d candidate(s) found.\n", kind.Title(), res.Item.ID, len(res.Matches))

		out := cmd.OutOrStdout()
		switch {
		case asJSON:
			return render.WriteJSON(out, res)
		case len(res.Matches) == 0:
			return nil
		case asTable:
			fmt.Fprintln(out, render.MatchTable(res.Matches))
			return nil
		default:
			return render.PrintMatches(out, res.Matches, render.Options{Flags: outputFlags, Delimiter: delimiter})
		}
	},
}

func formFromFlags(cmd *cobra.Command) (submission.Form, error) {
	imagePath, _ := cmd.Flags().GetString("image")
	whereRaw, _ := cmd.Flags().GetString("where")
	whenRaw, _ := cmd.Flags().GetString("when")
	place, _ := cmd.Flags().GetString("place")
	description, _ := cmd.Flags().GetString("description")

	where, ok := catalog.NormalizeLocation(whereRaw)
	if !ok {
		return submission.Form{}, fmt.Errorf("unknown location %q, expected one of: %s", whereRaw, strings.Join(catalog.Locations, ", "))
	}
	when, ok := catalog.NormalizeTimeFrame(whenRaw)
	if !ok {
		return submission.Form{}, fmt.Errorf("unknown time frame %q, expected one of: %s", whenRaw, strings.Join(catalog.TimeFrames, ", "))
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return submission.Form{}, fmt.Errorf("could not read image: %w", err)
	}

	return submission.Form{
		Image:         &backend.Image{Filename: filepath.Base(imagePath), Data: data},
		Where:         where,
		SpecificPlace: place,
		When:          when,
		Description:   description,
	}, nil
}

// submitWithRetry submits once and, when prompting is possible, offers to
// resend the same report after each failure.
func submitWithRetry(ctx context.Context, flow *submission.Flow, in io.Reader, prompt io.Writer, canPrompt bool) (*submission.Result, error) {
	res, err := flow.Submit(ctx)
	if err == nil || !canPrompt || flow.Snapshot().State != submission.StateFailed {
		return res, err
	}

	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(prompt, "Submission failed: %s\nRetry? [y/N] ", flow.Snapshot().Err)
		answer, rerr := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			return nil, err
		}
		res, err = flow.Retry(ctx)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, submission.ErrNothingToRetry) || rerr != nil {
			return nil, err
		}
	}
}

func interactive() bool {
	tty := func(fd uintptr) bool {
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return tty(os.Stdin.Fd()) && tty(os.Stderr.Fd())
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringP("image", "i", "", "Photo of the item (.jpg, .jpeg, .png, .webp, up to 10MB)")
	submitCmd.Flags().StringP("where", "w", "", "Location type: "+strings.Join(catalog.Locations, ", "))
	submitCmd.Flags().StringP("when", "t", "", "Time frame: "+strings.Join(catalog.TimeFrames, ", "))
	submitCmd.Flags().String("place", "", "Specific place (station, mall name, ...)")
	submitCmd.Flags().String("description", "", "Description of the item")
	submitCmd.Flags().StringP("output", "o", "ipsd", "Output flags. Supported: i (id), k (kind), d (description), w (where), t (when), s (status), p (percent), u (image url)")
	submitCmd.Flags().StringP("delimiter", "d", " ", "Delimiter character to use for txt output format")
	submitCmd.Flags().Bool("json", false, "Print the created item and its matches as JSON")
	submitCmd.Flags().Bool("table", false, "Print the matches as a table")
	submitCmd.MarkFlagRequired("image")
	submitCmd.MarkFlagRequired("where")
	submitCmd.MarkFlagRequired("when")
}
