package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sergev/imdtool/imd"
)

var checkFatalMask uint32

var checkCmd = &cobra.Command{
	Use:   "check <file.imd>",
	Short: "Run the consistency scanner over an IMD image and report its findings",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to open %s: %w", args[0], err))
		}
		defer f.Close()

		opts := imd.DefaultScanOptions()
		opts.FatalMask = checkFatalMask
		result, err := imd.Scan(f, opts)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("scan aborted: %w", err))
		}

		fmt.Printf("tracks=%d sectors=%d unavailable=%d deleted=%d compressed=%d data_error=%d\n",
			result.TrackCount, result.TotalSectors, result.Unavailable, result.Deleted,
			result.Compressed, result.DataError)
		fmt.Printf("max_cyl_side0=%d max_cyl_side1=%d max_head=%d first_interleave=%d\n",
			result.MaxCylSide0, result.MaxCylSide1, result.MaxHead, result.FirstInterleave)
		fmt.Printf("failures=0x%04X\n", result.Failures)

		if result.Failures&checkFatalMask != 0 {
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().Uint32Var(&checkFatalMask, "fatal-mask", 0, "failure bitmask that causes a nonzero exit code")
	rootCmd.AddCommand(checkCmd)
}
