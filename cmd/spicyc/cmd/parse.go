package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeek/go-spicy/pkg/spicy"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.spicy> [...]",
	Short: "Parse and type-check sources without generating code",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		driver := spicy.NewDriver(spicy.Options{
			SearchDirs: flagSearchDirs,
			Verbose:    flagVerbose,
		})
		for _, path := range args {
			if _, err := driver.ParseSource(path); err != nil {
				fmt.Print(driver.RenderErrors(true))
				exitWithError("%s", err)
			}
		}
		if err := driver.ProcessAST(); err != nil {
			fmt.Print(driver.RenderErrors(true))
			exitWithError("%s", err)
		}
		fmt.Println("ok")
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
