package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esn-finder/internal/config"
	"github.com/sells-group/esn-finder/internal/naf"
	"github.com/sells-group/esn-finder/internal/registry"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check INSEE connectivity with a one-record query",
	Long:  "Fetches a single establishment for the first NAF code using the INSEE API key, or OAuth credentials if no key is set. Exits 2 on failure.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runPing(ctx, cfg)
	},
}

func runPing(ctx context.Context, c *config.Config) error {
	code := naf.DefaultCodes[0]
	if len(c.Search.NAFCodes) > 0 {
		code = c.Search.NAFCodes[0]
	}

	f := newFetcher(c)
	res, err := registry.Ping(ctx, f, f.Client(), chainConfig(c), code)
	if eris.Is(err, registry.ErrNoCredentials) {
		fmt.Fprintln(os.Stdout, "No INSEE credentials provided for ping.")
		return errPingFailed
	}

	label := "INSEE API key"
	if res.Source == "insee_oauth" {
		label = "INSEE OAuth"
	}
	if err != nil || !res.OK {
		fmt.Fprintf(os.Stdout, "%s connectivity: FAIL\n", label)
		if err != nil {
			return eris.Wrap(errPingFailed, err.Error())
		}
		return errPingFailed
	}
	fmt.Fprintf(os.Stdout, "%s connectivity: OK\n", label)
	return nil
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
