package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esn-finder/internal/export"
	"github.com/sells-group/esn-finder/internal/model"
)

var notionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Manage the Notion lead database",
}

var notionPushCmd = &cobra.Command{
	Use:   "push <csv>",
	Short: "Upsert qualifying rows of a ranked CSV into the lead database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Notion.Enabled() {
			return eris.New("notion push: notion.token and notion.lead_db are required (ESN_NOTION_TOKEN, ESN_NOTION_LEAD_DB)")
		}

		cands, err := export.ReadCSV(args[0])
		if err != nil {
			return eris.Wrap(err, "notion push")
		}
		all, _ := cmd.Flags().GetBool("all")
		rows := cands
		if !all {
			rows = model.FilterQualifying(cands)
		}

		sink := export.NewNotionSink(newNotionClient(cfg, newFetcher(cfg)), cfg.Notion.LeadDB)
		if err := sink.Write(cmd.Context(), cands, rows); err != nil {
			return eris.Wrap(err, "notion push")
		}
		fmt.Fprintf(os.Stdout, "Pushed %d leads to Notion\n", len(rows))
		return nil
	},
}

func init() {
	notionPushCmd.Flags().Bool("all", false, "push every row, not only qualifying ones")

	notionCmd.AddCommand(notionPushCmd)
	rootCmd.AddCommand(notionCmd)
}
