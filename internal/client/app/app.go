// Package app wires the cardsync client together: it opens the on-device
// substrate, builds the services, and runs one of the CLI commands.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/cardsync/internal/client/auth"
	"github.com/dmitrijs2005/cardsync/internal/client/autosave"
	"github.com/dmitrijs2005/cardsync/internal/client/cache"
	"github.com/dmitrijs2005/cardsync/internal/client/cardstore"
	"github.com/dmitrijs2005/cardsync/internal/client/config"
	"github.com/dmitrijs2005/cardsync/internal/client/debughttp"
	"github.com/dmitrijs2005/cardsync/internal/client/localdb"
	"github.com/dmitrijs2005/cardsync/internal/client/remote"
	"github.com/dmitrijs2005/cardsync/internal/client/services"
	"github.com/dmitrijs2005/cardsync/internal/client/sessions"
	"github.com/dmitrijs2005/cardsync/internal/logging"
)

// Commands understood by Run.
const (
	CommandMigrate = "migrate"
	CommandReport  = "report"
	CommandServe   = "serve"
)

var ErrUnknownCommand = errors.New("unknown command")

type App struct {
	config *config.Config
	logger logging.Logger
	out    io.Writer

	substrate io.Closer
	remoteDB  *sql.DB

	data       services.DataService
	authSvc    services.AuthService
	controller *autosave.Controller
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	l := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	return newApp(ctx, c, logging.NewSlogLogger(l), os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, out io.Writer) (*App, error) {
	repo, closer, err := localdb.OpenRepository(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app := &App{config: c, logger: logger, out: out, substrate: closer}

	cards := cardstore.NewStore(repo, cardstore.WithLogger(logger))
	sess := sessions.NewStore(repo)
	app.data = services.NewDataService(cards, cache.New(repo), sess, logger)

	tokens := auth.NewTokenSession([]byte(c.JWTSecret))
	opts := []autosave.Option{
		autosave.WithAuth(tokens),
		autosave.WithAnonymousCreator(auth.NewAnonymousID(sess)),
		autosave.WithLogger(logger),
		autosave.WithNotifier(func(cardID string, err error) {
			logger.Warn(context.Background(), "card sync problem", "card_id", cardID, "error", err)
		}),
	}

	if c.RemoteDSN != "" {
		db, err := remote.OpenDB(c.RemoteDSN)
		if err != nil {
			_ = closer.Close()
			return nil, fmt.Errorf("remote db init error: %w", err)
		}
		app.remoteDB = db
		opts = append(opts, autosave.WithRemote(remote.NewPostgresRemote(db)))
	} else {
		logger.Info(ctx, "no remote configured, running local-only")
	}

	app.controller = autosave.NewController(app.data, autosave.Config{
		LocalSaveDelay:  c.LocalSaveDelay,
		RemoteSyncDelay: c.RemoteSyncDelay,
		SyncTimeout:     c.SyncTimeout,
		RetryInterval:   c.RetryInterval,
	}, opts...)

	app.authSvc = services.NewAuthService(tokens, sess, app.controller, logger)
	if userID, ok := app.authSvc.Restore(ctx); ok {
		logger.Info(ctx, "restored session", "user_id", userID)
	}

	return app, nil
}

// Run executes command and releases every resource the app holds.
func (app *App) Run(ctx context.Context, command string) error {
	defer app.close()

	switch command {
	case CommandMigrate:
		return app.printJSON(app.data.MigrateFromOldStorage(ctx))
	case CommandReport:
		return app.printJSON(app.data.StorageReport(ctx))
	case CommandServe:
		return app.serve(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) serve(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	res := app.data.MigrateFromOldStorage(ctx)
	app.logger.Info(ctx, "legacy storage consolidated", "migrated", res.MigratedCount, "cleaned", len(res.CleanedLocations))

	var (
		wg     sync.WaitGroup
		runErr error
	)

	if app.config.DebugAddr != "" {
		h := debughttp.NewHandler(app.data, app.authSvc, app.controller, app.logger)
		s := debughttp.NewServer(app.config.DebugAddr, debughttp.NewRouter(h), app.logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				runErr = err
				cancelFunc()
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	app.logger.Info(context.Background(), "Stopping app...")
	return runErr
}

func (app *App) close() {
	ctx := context.Background()
	if err := app.controller.Close(ctx); err != nil {
		app.logger.Warn(ctx, "flush on shutdown failed", "error", err)
	}
	if app.remoteDB != nil {
		_ = app.remoteDB.Close()
	}
	if err := app.substrate.Close(); err != nil {
		app.logger.Warn(ctx, "closing storage failed", "error", err)
	}
}

func (app *App) printJSON(v any) error {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
