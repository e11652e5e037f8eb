// Command checkbinaries verifies that the decoder and fetcher binaries the
// configured engine depends on are present and of a compatible version,
// printing a troubleshooting guide and exiting non-zero if not.
package main

import (
	"fmt"
	"os"

	"github.com/kestrelfm/spindle/pkg/config"
	"github.com/kestrelfm/spindle/tools"
)

func main() {
	fmt.Println("=== Playback Engine Binary Dependencies Verification ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("could not load configuration, falling back to defaults: %v\n", err)
		cfg = &config.Config{
			Decoder: config.DecoderConfig{BinaryPath: "ffmpeg"},
			Fetcher: config.FetcherConfig{BinaryPath: "yt-dlp"},
		}
	}

	fmt.Printf("decoder binary: %s\n", cfg.Decoder.BinaryPath)
	fmt.Printf("fetcher binary: %s\n", cfg.Fetcher.BinaryPath)
	fmt.Println()

	validator := tools.NewBinaryValidator(cfg.Decoder.BinaryPath, cfg.Fetcher.BinaryPath)
	results, err := validator.ValidateAllBinaries()
	if err != nil {
		for name, info := range results {
			status := "ok"
			if !info.IsAvailable {
				status = "MISSING"
			}
			fmt.Printf("%-8s %-8s %s\n", name, status, info.Version)
		}
		fmt.Println()
		fmt.Println(err)
		os.Exit(1)
	}

	for name, info := range results {
		fmt.Printf("%-8s ok      %s\n", name, info.Version)
	}
	fmt.Println()
	fmt.Println("all binary dependencies verified")
}
