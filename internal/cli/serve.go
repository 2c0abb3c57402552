package cli

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rollfed/gangrun/internal/api"
	"github.com/rollfed/gangrun/pkg/cache"
	"github.com/rollfed/gangrun/pkg/integrations/assets"
	"github.com/rollfed/gangrun/pkg/integrations/imposer"
	"github.com/rollfed/gangrun/pkg/integrations/optimizer"
	"github.com/rollfed/gangrun/pkg/store"
)

// serveShutdownTimeout bounds graceful shutdown, including the window
// in-flight batches get to revert their runs.
const serveShutdownTimeout = 10 * time.Second

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gangrun HTTP API",
		Long: `Run the gangrun HTTP API.

The server exposes planning, suggestion merging, layout state, and batch
imposition over REST. State lives in MongoDB when GANGRUN_MONGO_URI is
set and in memory otherwise; suggestion and signed-URL caching uses
Redis when GANGRUN_REDIS_ADDR is set. Endpoints whose remote service is
not configured answer 501.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, configPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", api.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default gangrun.toml in the config dir)")

	return cmd
}

// runServe starts the API server and blocks until the context is cancelled
// or the listener fails.
func (c *CLI) runServe(ctx context.Context, addr, configPath string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		c.Logger.Debugf("Using config %s", cfgPath)
	}

	st, err := c.newServeStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	backend, err := c.newServeCache(ctx)
	if err != nil {
		return err
	}

	apiCfg := api.Config{
		Addr:   addr,
		Store:  st,
		Policy: cfg.executePolicy(),
		Logger: c.Logger,
	}
	if url := os.Getenv(envOptimizerURL); url != "" {
		apiCfg.Optimizer = optimizer.NewClient(url, backend, suggestionTTL)
	} else {
		c.Logger.Warnf("%s is not set; suggestion endpoints answer 501", envOptimizerURL)
	}
	if url := os.Getenv(envImposerURL); url != "" {
		apiCfg.Imposer = imposer.NewClient(url, imposerHeaders())
	} else {
		c.Logger.Warnf("%s is not set; imposition endpoints answer 501", envImposerURL)
	}
	if url := os.Getenv(envAssetsURL); url != "" {
		apiCfg.Assets = assets.NewResolver(url, backend, 0)
	}

	srv, err := api.NewServer(apiCfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// newServeStore picks MongoDB when configured, the in-memory store
// otherwise.
func (c *CLI) newServeStore(ctx context.Context) (store.Store, error) {
	if uri := os.Getenv(envMongoURI); uri != "" {
		st, err := store.NewMongoStore(ctx, uri, appName)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("Connected to mongodb")
		return st, nil
	}
	c.Logger.Warnf("%s is not set; state is lost on exit", envMongoURI)
	return store.NewMemoryStore(), nil
}

// newServeCache picks Redis when configured, the local file cache
// otherwise.
func (c *CLI) newServeCache(ctx context.Context) (cache.Cache, error) {
	if addr := os.Getenv(envRedisAddr); addr != "" {
		rc, err := cache.NewRedisCache(ctx, addr)
		if err != nil {
			return nil, err
		}
		c.Logger.Infof("Connected to redis at %s", addr)
		return rc, nil
	}
	return newCache(false)
}
