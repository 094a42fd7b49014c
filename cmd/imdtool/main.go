// Command imdtool inspects, checks, extracts, and formats ImageDisk (IMD)
// floppy disk image files.
package main

func main() {
	Execute()
}
