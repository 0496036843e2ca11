// Package main provides the casdaget command line client for the CASDA
// archive's Virtual Observatory services.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "casdaget",
	Short: "Query the CASDA archive and download image cutouts, slices and spectra",
	Long: `casdaget runs retrieval workflows against the CASDA archive's Virtual
Observatory services: query the catalogue (TAP) or image holdings (SIA2),
resolve data access links, submit server-side extraction jobs (SODA) and
download the results.

Credentials are your OPAL account. The password is taken from --password,
then --password-file, then the OPAL_PASSWORD environment variable, and is
prompted for interactively when none of those are set.`,
	SilenceUsage: true,
}

var (
	flagConfigPath   string
	flagUsername     string
	flagPassword     string
	flagPasswordFile string
	flagEnv          string
	flagPollInterval string
	flagPollTimeout  string
	flagRadius       float64
	flagVerbose      bool
	flagQuiet        bool
)

func init() {
	registerGlobalFlags(rootCmd.PersistentFlags())
}

// registerGlobalFlags binds the flags shared by every subcommand.
func registerGlobalFlags(pf *pflag.FlagSet) {
	pf.StringVar(&flagConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	pf.StringVarP(&flagUsername, "username", "u", "", "OPAL user name, normally an email address (defaults to OPAL_USER env var)")
	pf.StringVarP(&flagPassword, "password", "p", "", "OPAL password (prompted for when no password source is set)")
	pf.StringVar(&flagPasswordFile, "password-file", "", "File holding the OPAL password on its first line")
	pf.StringVar(&flagEnv, "env", "", "Archive environment: prod, at, test or dev (defaults to CASDA_ENV env var, then prod)")
	pf.StringVar(&flagPollInterval, "poll-interval", "", "Delay between job status checks, e.g. 20s (default depends on the command)")
	pf.StringVar(&flagPollTimeout, "poll-timeout", "", "Overall deadline per job, e.g. 6h; 0 disables (default 6h)")
	pf.Float64Var(&flagRadius, "radius", 0, "Cutout radius in degrees (default 0.1)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed query and job information")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress download progress bars")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
