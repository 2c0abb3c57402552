// Package cli implements the gangrun command-line interface.
//
// The CLI drives the file-based production workflow: plan an order into a
// ranked set of gang-run layouts, optionally fold in an externally computed
// suggestion, pick a layout, and impose the chosen layout on the remote
// imposition service. Plans travel between commands as plan documents
// (JSON files), so every step can be inspected, diffed, and re-run.
//
// # Commands
//
// The main commands are:
//   - plan: compute ranked layouts for an order file
//   - suggest: merge an externally computed layout into a plan
//   - select: change which layout a plan will impose
//   - impose: run the plan's selected layout against the imposition service
//   - viz: draw a layout as a reviewable diagram
//   - serve: run the HTTP API
//   - cache: manage the response cache
//
// # Remote Services
//
// Remote endpoints are configured through the environment:
//
//	GANGRUN_OPTIMIZER_URL   layout suggestion service (suggest, serve)
//	GANGRUN_IMPOSER_URL     imposition service (impose, serve)
//	GANGRUN_IMPOSER_TOKEN   bearer token for the imposition service
//	GANGRUN_ASSETS_URL      file storage gateway for signed asset URLs
//	GANGRUN_STATE_DIR       run state directory (default ~/.gangrun/store)
//	GANGRUN_MONGO_URI       MongoDB connection string (serve)
//	GANGRUN_REDIS_ADDR      Redis address for the shared cache (serve)
//	GANGRUN_CONFIG          config file path (default ~/.config/gangrun/gangrun.toml)
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rollfed/gangrun/pkg/buildinfo"
	"github.com/rollfed/gangrun/pkg/cache"
	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/integrations/assets"
	"github.com/rollfed/gangrun/pkg/integrations/imposer"
	"github.com/rollfed/gangrun/pkg/integrations/optimizer"
	"github.com/rollfed/gangrun/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gangrun"

	// suggestionTTL is how long cached optimizer responses stay valid.
	suggestionTTL = 24 * time.Hour
)

// Environment variables for remote service and state configuration.
const (
	envOptimizerURL = "GANGRUN_OPTIMIZER_URL"
	envImposerURL   = "GANGRUN_IMPOSER_URL"
	envImposerToken = "GANGRUN_IMPOSER_TOKEN"
	envAssetsURL    = "GANGRUN_ASSETS_URL"
	envStateDir     = "GANGRUN_STATE_DIR"
	envMongoURI     = "GANGRUN_MONGO_URI"
	envRedisAddr    = "GANGRUN_REDIS_ADDR"
	envConfig       = "GANGRUN_CONFIG"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

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
		Use:          "gangrun",
		Short:        "Gangrun plans and imposes gang-run label production",
		Long:         `Gangrun is the production planning tool for digital label presses: it packs ordered items into shared press runs, scores the candidate layouts, and drives the chosen layout through the remote imposition service.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.planCommand())
	root.AddCommand(c.suggestCommand())
	root.AddCommand(c.selectCommand())
	root.AddCommand(c.imposeCommand())
	root.AddCommand(c.vizCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Client Factories
// =============================================================================

// newOptimizerClient builds the suggestion service client from the environment.
func newOptimizerClient(noCache bool) (*optimizer.Client, error) {
	url := os.Getenv(envOptimizerURL)
	if url == "" {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s is not set; cannot reach the suggestion service", envOptimizerURL)
	}
	backend, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return optimizer.NewClient(url, backend, suggestionTTL), nil
}

// newImposerClient builds the imposition service client from the environment.
func newImposerClient() (*imposer.Client, error) {
	url := os.Getenv(envImposerURL)
	if url == "" {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s is not set; cannot reach the imposition service", envImposerURL)
	}
	return imposer.NewClient(url, imposerHeaders()), nil
}

// imposerHeaders returns the auth headers for the imposition service, or nil.
func imposerHeaders() map[string]string {
	tok := os.Getenv(envImposerToken)
	if tok == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

// newAssetResolver builds the asset resolver, or returns nil when no storage
// gateway is configured. Orders without print assets impose fine without one.
func newAssetResolver(noCache bool) (*assets.Resolver, error) {
	url := os.Getenv(envAssetsURL)
	if url == "" {
		return nil, nil
	}
	backend, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return assets.NewResolver(url, backend, 0), nil
}

// newStateStore opens the local run state store.
func newStateStore() (*store.FileStore, error) {
	return store.NewFileStore(os.Getenv(envStateDir))
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

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gangrun/).
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

// configDir returns the config directory using XDG standard (~/.config/gangrun/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
