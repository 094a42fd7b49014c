package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergev/imdtool/imd"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file.imd>",
	Short: "Print an IMD image's header, comment, and per-track summary",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		img, err := imd.Open(args[0], true)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to open %s: %w", args[0], err))
		}
		defer img.Close()

		fmt.Printf("version: %s\n", img.Version())
		if comment := img.Comment(); len(comment) > 0 {
			fmt.Printf("comment:\n%s\n", comment)
		}

		for _, t := range img.Tracks() {
			var unavailable, normal, compressed, dam, errCount int
			for _, flag := range t.SFlag {
				switch {
				case flag == 0x00:
					unavailable++
				case imd.IsCompressed(flag):
					compressed++
				default:
					normal++
				}
				if imd.HasDAM(flag) {
					dam++
				}
				if imd.HasErr(flag) {
					errCount++
				}
			}
			fmt.Printf("cyl %3d head %d  %-12s  nsec=%-3d ssize=%-5d  normal=%d compressed=%d unavailable=%d dam=%d err=%d\n",
				t.Cyl, t.Head, imd.ModeName(t.Mode), t.NumSectors, t.SectorSize,
				normal, compressed, unavailable, dam, errCount)
		}
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
