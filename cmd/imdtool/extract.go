package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sergev/imdtool/imd"
)

var extractInterleave int

var extractCmd = &cobra.Command{
	Use:   "extract <file.imd> <out.img>",
	Short: "Dump every track's sector data, in physical order, to a flat binary image",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		img, err := imd.Open(args[0], true)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to open %s: %w", args[0], err))
		}
		defer img.Close()

		out, err := os.Create(args[1])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to create %s: %w", args[1], err))
		}
		defer out.Close()

		for _, t := range img.Tracks() {
			if err := imd.WriteTrackBin(out, t, extractInterleave); err != nil {
				cobra.CheckErr(fmt.Errorf("failed to extract cyl=%d head=%d: %w", t.Cyl, t.Head, err))
			}
		}

		fmt.Printf("extracted %d tracks to %s\n", len(img.Tracks()), args[1])
	},
}

func init() {
	extractCmd.Flags().IntVar(&extractInterleave, "interleave", 0, "0=as-read, 255=best-guess, else apply this factor")
	rootCmd.AddCommand(extractCmd)
}
