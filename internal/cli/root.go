// Package cli defines the registry service command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masumi-network/registry-service/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "registry",
	Short: "Masumi registry service",
	Long: `Masumi registry service discovers agent registrations from on-chain
registration tokens, verifies agent endpoints and serves the resulting
registry over HTTP.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("registry %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Root returns the top-level command.
func Root() *cobra.Command {
	return rootCmd
}
