package main

import (
	"github.com/spf13/cobra"

	"github.com/sergev/imdtool/imd"
)

var rootCmd = &cobra.Command{
	Use:   "imdtool",
	Short: "A CLI program which works with ImageDisk (IMD) floppy image files",
	Long:  "The imdtool tool inspects, checks, extracts, and formats ImageDisk (IMD) floppy image files.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		imd.DefaultReporter.Quiet = quiet
		imd.DefaultReporter.Verbose = verbose
	},
}

var (
	quiet   bool
	verbose bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress warnings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable info/debug output")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
