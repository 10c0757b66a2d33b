// Package cli implements the sldgen command-line interface.
//
// This package provides commands for converting substation descriptions
// from a SPARQL endpoint (or a captured row file) into layout documents,
// inspecting topology findings, exporting connectivity graphs as DOT,
// serving the HTTP API, and managing the local cache. The CLI is built
// using cobra and supports verbose logging via the charmbracelet/log
// library.
//
// # Commands
//
// The main commands are:
//   - generate: Convert a dataset into a layout document
//   - validate: Run the pipeline and report topology findings
//   - dot: Export the resolved connectivity graph as Graphviz DOT
//   - serve: Run the HTTP API
//   - symbols: Inspect the drawing symbol catalog
//   - cache: Manage the local row and document cache
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gridsmith/sldgen/pkg/buildinfo"
	"github.com/gridsmith/sldgen/pkg/cache"
	"github.com/gridsmith/sldgen/pkg/convention"
	"github.com/gridsmith/sldgen/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "sldgen"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "sldgen",
		Short:        "sldgen converts substation topology into single-line diagrams",
		Long:         `sldgen reconstructs electrical topology from RDF substation descriptions, infers busbars, and computes deterministic single-line-diagram layouts under a drawing convention.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.symbolsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cch, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cch, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/sldgen/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// loadConventionConfig applies TOML convention overrides when a config
// path is given.
func loadConventionConfig(path string) error {
	if path == "" {
		return nil
	}
	_, err := convention.LoadConfig(path)
	return err
}
