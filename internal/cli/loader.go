package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/sistrence/internal/config"
	"github.com/roach88/sistrence/internal/connector/mongoconn"
	"github.com/roach88/sistrence/internal/connector/sqlconn"
	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/link"
)

// Session holds the links opened for one command invocation.
type Session struct {
	Config   *config.Config
	Registry *link.Registry

	closers []func() error
}

// rawQuerier is implemented by SQL backends.
type rawQuerier interface {
	Raw(ctx context.Context, sql string) ([]ir.Row, error)
}

// newLogger builds the command logger. Diagnostics go to w; verbose mode
// lowers the level to debug.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OpenSession loads the configuration at opts.Config and opens every link
// it defines. On error, links opened so far are closed.
func OpenSession(ctx context.Context, opts *RootOptions, logger *slog.Logger) (*Session, error) {
	path := opts.Config
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("config file not found: %s", path))
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	s := &Session{
		Config:   cfg,
		Registry: link.NewRegistry(cfg.Sharder(), link.WithLogger(logger)),
	}

	for _, l := range cfg.Links {
		logger.Debug("opening link", "link", l.ID, "driver", l.Driver)
		if err := s.open(ctx, l, logger); err != nil {
			if closeErr := s.Close(); closeErr != nil {
				logger.Error("error closing links", "error", closeErr)
			}
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open link %d", l.ID), err)
		}
	}
	return s, nil
}

func (s *Session) open(ctx context.Context, l config.Link, logger *slog.Logger) error {
	if l.Driver == config.DriverMongo {
		store, err := mongoconn.Open(ctx, l.DSN, l.Database)
		if err != nil {
			return err
		}
		s.Registry.Register(l.ID, store.Backend(logger))
		s.closers = append(s.closers, func() error {
			return store.Close(context.Background())
		})
		return nil
	}

	conn, err := sqlconn.Open(ctx, l.Driver, l.DSN)
	if err != nil {
		return err
	}
	s.Registry.Register(l.ID, conn.Backend(logger))
	s.closers = append(s.closers, conn.Close)
	return nil
}

// Raw runs a native SQL statement on link id.
func (s *Session) Raw(ctx context.Context, id int, sql string) ([]ir.Row, error) {
	b, err := s.Registry.Backend(id)
	if err != nil {
		return nil, err
	}
	rq, ok := b.(rawQuerier)
	if !ok {
		return nil, fmt.Errorf("link %d (%s) does not accept raw SQL", id, b.Name())
	}
	return rq.Raw(ctx, sql)
}

// Close closes every opened link, in reverse order.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
