package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect discovery run history",
	Long:  "Commands for listing runs and viewing their ranked candidates. Requires store.driver.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its ranked candidates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		cands, err := st.ListCandidates(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show candidates")
		}
		relevantOnly, _ := cmd.Flags().GetBool("relevant")
		if relevantOnly {
			cands = model.FilterQualifying(cands)
		}

		formatRunHeader(os.Stdout, *run)
		formatCandidates(os.Stdout, cands)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", store.DefaultListLimit, "max number of runs to display")

	runsShowCmd.Flags().Bool("json", false, "print the run record as JSON")
	runsShowCmd.Flags().Bool("relevant", false, "only show qualifying candidates")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// openStore opens and migrates the configured ledger.
func openStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Driver == "" {
		return nil, eris.New("no store configured (set store.driver and store.database_url)")
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAF\tSTATUS\tROWS\tRELEVANT\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---\t------\t----\t--------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		rows, relevant := "-", "-"
		if r.Stats != nil {
			rows = fmt.Sprint(r.Stats.Processed)
			relevant = fmt.Sprint(r.Stats.Qualifying)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			joinCodes(r.Params.NAFCodes),
			r.Status,
			rows,
			relevant,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

func formatRunHeader(out io.Writer, r model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.ID)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", r.Status)
	_, _ = fmt.Fprintf(w, "NAF codes:\t%s\n", joinCodes(r.Params.NAFCodes))
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", r.CreatedAt.Format("2006-01-02 15:04"))
	if s := r.Stats; s != nil {
		_, _ = fmt.Fprintf(w, "Raw records:\t%d\n", s.RawRecords)
		_, _ = fmt.Fprintf(w, "Unique SIREN:\t%d\n", s.UniqueSIREN)
		_, _ = fmt.Fprintf(w, "Skipped:\t%d zero, %d oversize, %d failed\n", s.SkippedZero, s.SkippedOversize, s.Failed)
		_, _ = fmt.Fprintf(w, "Qualifying:\t%d of %d\n", s.Qualifying, s.Processed)
		if s.Error != "" {
			_, _ = fmt.Fprintf(w, "Error:\t%s\n", s.Error)
		}
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
}

// formatCandidates writes ranked candidates to w.
func formatCandidates(out io.Writer, cands []model.Candidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SIREN\tNAME\tNAF\tSITE\tSCORE\tPERT\tQUALIFIES")
	_, _ = fmt.Fprintln(w, "-----\t----\t---\t----\t-----\t----\t---------")
	for _, c := range cands {
		name := c.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%t\n",
			c.SIREN, name, c.NAF, c.Domain, c.Score, c.PertinenceScore, c.Qualifies)
	}
	_ = w.Flush()
}

func joinCodes(codes []string) string {
	if len(codes) == 0 {
		return "-"
	}
	return strings.Join(codes, ",")
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
