// Command filewallet serves per-domain file storage over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "filewallet",
	Short: "Per-domain file storage service",
	Long: `File Wallet stores files and folders for every domain it serves.

The domain is taken from the request hostname, callers identify themselves
with a wallet address header, and file bytes live on a pluggable backend
(filesystem, S3, MinIO, IPFS or memory).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("config file (default %s)", defaultConfigHint()))

	rootCmd.AddCommand(newStartCmd(), newInitCmd(), newSweepCmd(), newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
