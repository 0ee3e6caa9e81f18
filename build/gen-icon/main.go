//go:build ignore

// gen-icon writes the application icon into a hicolor theme tree for desktop
// packaging.
// Usage: go run build/gen-icon/main.go [output-dir]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/vpn-bridge/internal/icon"
)

func main() {
	output := "build/linux/icons/hicolor"
	if len(os.Args) > 1 {
		output = os.Args[1]
	}

	for _, size := range []int{16, 32, 48, 64, 128, 256} {
		data, err := icon.EncodePNG(icon.Shield(icon.Green, size))
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode %dpx: %v\n", size, err)
			os.Exit(1)
		}

		dir := filepath.Join(output, fmt.Sprintf("%dx%d", size, size), "apps")
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
			os.Exit(1)
		}
		path := filepath.Join(dir, "vpn-bridge.png")
		if err := os.WriteFile(path, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", path)
	}
}
