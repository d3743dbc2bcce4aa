package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	flagVerbose    bool
	flagSearchDirs []string
)

var rootCmd = &cobra.Command{
	Use:   "spicyc",
	Short: "Spicy parser-generator compiler",
	Long: `go-spicy compiles Spicy parser descriptions into HILTI intermediate
code for embedding into a host application.

Spicy is a declarative language for writing network protocol and file
format parsers: units describe the wire layout, hooks attach user logic,
and sinks reassemble out-of-order input for sub-parsers.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringSliceVarP(&flagSearchDirs, "library-path", "L", nil, "directories to search for imported modules")

	// SPICY_PATH from the environment (and .env, if present) extends the
	// search path.
	_ = godotenv.Load()
	if p := os.Getenv("SPICY_PATH"); p != "" {
		flagSearchDirs = append(flagSearchDirs, strings.Split(p, ":")...)
	}
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
