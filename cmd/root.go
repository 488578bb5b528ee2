package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/config"
	"github.com/sells-group/esn-finder/internal/pipeline"
)

var cfg *config.Config

// errPingFailed marks a connectivity check that reached INSEE but got no data.
var errPingFailed = errors.New("ping: INSEE returned no data")

var rootCmd = &cobra.Command{
	Use:   "esn-finder",
	Short: "Discover French IT services and engineering consultancies",
	Long: "Queries the SIRENE registry by NAF code, resolves each company's website, " +
		"scans it for ESN/SSII signals and writes a ranked CSV of candidates.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal; real environment variables still apply.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// exitCode maps a command error to the process status: 2 for strict-mode
// exhaustion and failed pings, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pipeline.ErrStrictExhausted), errors.Is(err, errPingFailed):
		return 2
	default:
		return 1
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
