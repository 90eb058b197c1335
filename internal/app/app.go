// Package app wires the configuration, the message store, the notification
// coalescer and the interactive CLI into one process.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/ampcare/internal/attachments"
	"github.com/dmitrijs2005/ampcare/internal/cli"
	"github.com/dmitrijs2005/ampcare/internal/config"
	"github.com/dmitrijs2005/ampcare/internal/logging"
	"github.com/dmitrijs2005/ampcare/internal/metrics"
	"github.com/dmitrijs2005/ampcare/internal/notify"
	"github.com/dmitrijs2005/ampcare/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	store    *store.Store
	alerts   *notify.Coalescer
	cli      *cli.App

	unsubscribe func()
}

type settings struct {
	in      io.Reader
	out     io.Writer
	logOut  io.Writer
	surface notify.Surface
	watch   bool
}

type Option func(*settings)

// WithIO replaces stdin and stdout of the CLI.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *settings) { s.in, s.out = in, out }
}

// WithLogOutput replaces stderr as log destination.
func WithLogOutput(w io.Writer) Option {
	return func(s *settings) { s.logOut = w }
}

// WithSurface replaces the logging notification surface.
func WithSurface(surface notify.Surface) Option {
	return func(s *settings) { s.surface = surface }
}

// WithoutWatch disables the filesystem watcher.
func WithoutWatch() Option {
	return func(s *settings) { s.watch = false }
}

func NewApp(ctx context.Context, c *config.Config, opts ...Option) (*App, error) {
	st := settings{in: os.Stdin, out: os.Stdout, logOut: os.Stderr, watch: true}
	for _, o := range opts {
		o(&st)
	}

	logger := logging.New(st.logOut, c.LogLevel, c.LogFormat)
	registry := prometheus.NewRegistry()
	mt := metrics.New(registry)

	s, err := store.Open(ctx, store.Options{
		Root:          c.RootPath,
		Party:         c.PartyID,
		PartyName:     c.PartyName,
		KnownWriteTTL: c.KnownWriteTTL,
		ScanWorkers:   c.ScanWorkers,
		DisableWatch:  !st.watch,
		Logger:        logger,
		Metrics:       mt,
		Attachments: attachments.NewManager(
			attachments.WithLogger(logger.With("component", "attachments")),
			attachments.WithMetrics(mt),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	if st.surface == nil {
		st.surface = notify.NewLogSurface(logger.With("component", "notify"))
	}
	alerts := notify.NewCoalescer(st.surface, logger, mt)

	app := &App{
		config:   c,
		logger:   logger,
		registry: registry,
		store:    s,
		alerts:   alerts,
		cli: cli.NewApp(cli.Options{
			Store:     s,
			Alerts:    alerts,
			Logger:    logger,
			PartyName: c.PartyName,
			In:        st.in,
			Out:       st.out,
		}),
	}
	app.unsubscribe = s.Subscribe(app.onStoreEvent)
	return app, nil
}

// onStoreEvent forwards messages that arrived through sync to the
// notification coalescer.
func (app *App) onStoreEvent(ev store.Event) {
	if ev.Kind != store.EventDiscovered || ev.Message == nil {
		return
	}
	ctx := context.Background()
	if err := app.alerts.Discovered(ctx, ev.Message); err != nil {
		app.logger.Warn(ctx, "notification failed", "message_id", ev.ID, "error", err)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the CLI until it exits or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "root", app.store.Root(), "party", app.store.Party())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	// The REPL blocks on input, so it is not joined; cancellation by signal
	// must not wait for the next line.
	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		app.cli.Run(ctx)
	}()

	select {
	case <-replDone:
	case <-ctx.Done():
	}
	cancelFunc()
	wg.Wait()

	return app.Close()
}

// Close releases the store watcher.
func (app *App) Close() error {
	if app.unsubscribe != nil {
		app.unsubscribe()
	}
	return app.store.Close()
}
