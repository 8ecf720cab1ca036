// Package cmd implements the relay command-line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// versionInfo holds build identification injected at link time.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build identification from main.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Single-object replication between object stores",
	Long: `relay copies individual objects from a source object store to a
destination bucket, skipping objects whose content is already present.

Replication is idempotent: each replica carries provenance metadata
recording the source etag, and a repeat request for unchanged content
transfers nothing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the CLI under the given context, so commands stop
// when the process receives a termination signal.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
