package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsmith/sldgen/internal/server"
	"github.com/gridsmith/sldgen/pkg/cache"
	"github.com/gridsmith/sldgen/pkg/pipeline"
	"github.com/gridsmith/sldgen/pkg/store"
	"github.com/gridsmith/sldgen/pkg/symbols"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string // listen address
	endpoint string // SPARQL endpoint base URL
	redis    string // Redis address for the shared cache (empty = file cache)
	mongo    string // MongoDB URI for layout persistence (empty = in-memory)
	symbols  string // symbol catalog JSON file (empty = built-in)
	config   string // TOML convention override file
	noCache  bool
}

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{
		addr:     ":8080",
		endpoint: "http://localhost:3030",
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the sldgen HTTP API.

Endpoints:
  POST /sld/generate-data   convert a dataset into a layout document
  GET  /sld/layouts         list stored layout runs
  GET  /sld/layouts/{id}    fetch one stored run
  GET  /sld/symbols         the drawing symbol catalog
  GET  /sld/symbols/{type}  one symbol
  GET  /healthz             liveness probe
  GET  /metrics             Prometheus metrics

With --redis the row and document cache is shared across replicas; with
--mongo generated layouts persist across restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", opts.endpoint, "SPARQL endpoint base URL")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "Redis address for a shared cache (host:port)")
	cmd.Flags().StringVar(&opts.mongo, "mongo", "", "MongoDB URI for layout persistence")
	cmd.Flags().StringVar(&opts.symbols, "symbols", "", "symbol catalog JSON file")
	cmd.Flags().StringVar(&opts.config, "config", "", "TOML convention override file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	if err := loadConventionConfig(opts.config); err != nil {
		return err
	}

	cch, err := c.serverCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cch, nil, c.Logger)
	defer runner.Close()

	st, err := c.serverStore(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	lib := symbols.Default()
	if opts.symbols != "" {
		lib, err = symbols.Load(opts.symbols)
		if err != nil {
			return err
		}
	}

	srv := server.New(server.Config{
		Addr:     opts.addr,
		Endpoint: opts.endpoint,
	}, runner, st, lib, c.Logger)

	printInfo("Serving on %s (endpoint %s)", opts.addr, opts.endpoint)
	p := newProgress(c.Logger)
	err = srv.ListenAndServe(ctx)
	p.done("Server stopped")
	return err
}

func (c *CLI) serverCache(ctx context.Context, opts *serveOpts) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redis != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return cache.NewRedisCache(dialCtx, opts.redis)
	}
	return newCache(false)
}

func (c *CLI) serverStore(ctx context.Context, opts *serveOpts) (store.Store, error) {
	if opts.mongo == "" {
		return store.NewMemoryStore(), nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return store.NewMongoStore(dialCtx, opts.mongo)
}
