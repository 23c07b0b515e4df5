// mkicon writes the app icon as a PNG.
// Usage: go run ./cmd/mkicon [-size 256] <output.png>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Mavwarf/stillness/internal/icon"
)

func main() {
	size := flag.Int("size", 256, "icon edge length in pixels")
	flag.Parse()
	if flag.NArg() < 1 || *size < 16 {
		fmt.Fprintln(os.Stderr, "usage: mkicon [-size N] <output.png>")
		os.Exit(1)
	}
	data, err := icon.PNG(*size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(flag.Arg(0), data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
