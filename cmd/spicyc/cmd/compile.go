package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zeek/go-spicy/pkg/spicy"
)

var (
	flagOutput string
	flagStrict bool
	flagLinker bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <file.spicy> [...]",
	Short: "Compile Spicy sources to HILTI intermediate code",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		driver := spicy.NewDriver(spicy.Options{
			SearchDirs:      flagSearchDirs,
			StrictPublicAPI: flagStrict,
			Verbose:         flagVerbose,
		})

		uids := make([]spicy.UID, 0, len(args))
		for _, path := range args {
			uid, err := driver.ParseSource(path)
			if err != nil {
				fmt.Fprint(os.Stderr, driver.RenderErrors(true))
				exitWithError("%s", err)
			}
			uids = append(uids, uid)
		}

		if err := driver.ProcessAST(); err != nil {
			fmt.Fprint(os.Stderr, driver.RenderErrors(true))
			exitWithError("%s", err)
		}
		for _, w := range driver.Warnings() {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w.Error())
		}

		var out strings.Builder
		if flagLinker {
			meta, err := driver.LinkerMetaData(uids)
			if err != nil {
				exitWithError("%s", err)
			}
			out.WriteString(meta)
			out.WriteString("\n")
		} else {
			for _, uid := range uids {
				code, err := driver.Emit(uid)
				if err != nil {
					exitWithError("%s", err)
				}
				out.WriteString(code)
			}
		}

		if flagOutput == "" || flagOutput == "-" {
			fmt.Print(out.String())
			return
		}
		if err := os.WriteFile(flagOutput, []byte(out.String()), 0o644); err != nil {
			exitWithError("cannot write %s: %s", flagOutput, err)
		}
	},
}

func init() {
	compileCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default stdout)")
	compileCmd.Flags().BoolVar(&flagStrict, "strict-public-api", false, "keep all fields, disabling unused-field elimination")
	compileCmd.Flags().BoolVar(&flagLinker, "linker-metadata", false, "emit linker metadata JSON instead of code")
	rootCmd.AddCommand(compileCmd)
}
