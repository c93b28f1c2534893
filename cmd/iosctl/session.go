package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"iosctl/internal/adapter"
	"iosctl/internal/apply"
	"iosctl/internal/codec"
	"iosctl/internal/config"
	"iosctl/internal/datastore"
	"iosctl/internal/logging"
	"iosctl/internal/repository/sqlite"
	"iosctl/internal/trace"
	"iosctl/internal/transmit"

	"github.com/rs/zerolog"
)

// loadConfig reads --config, or the default search path when unset
func loadConfig() (*config.Config, zerolog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, _, err = config.LoadFromPath(configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.Init("iosctl", cfg.Logging), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// deviceSession bundles everything one command needs to talk to the device
type deviceSession struct {
	*apply.Session

	repo     *sqlite.Repository
	conn     *adapter.SSHSession
	recorder *trace.FileRecorder
	store    *datastore.MemStore
	logger   zerolog.Logger
}

// openSession dials the device, logs in, learns its model and builds the
// apply session on top of the connection
func openSession(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*deviceSession, error) {
	if cfg.Device.Address == "" {
		return nil, fmt.Errorf("no device address configured")
	}

	repo, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	ds := &deviceSession{repo: repo, store: datastore.NewStore(), logger: logger}

	decrypter, err := cfg.Decrypter()
	if err != nil {
		ds.Close()
		return nil, err
	}

	conn, err := adapter.Dial(ctx, cfg.SSH(), logger)
	if err != nil {
		ds.Close()
		return nil, err
	}
	ds.conn = conn

	settings := cfg.EffectiveTransmission()
	if err := adapter.Login(ctx, conn, &cfg.Device.Credential, settings.Timeout); err != nil {
		ds.Close()
		return nil, fmt.Errorf("login: %w", err)
	}

	tx, err := transmit.New(conn, settings, logger)
	if err != nil {
		ds.Close()
		return nil, err
	}

	cache := repo.Device(cfg.Device.Address)
	model := cfg.Device.Model
	if model == "" {
		facts, err := adapter.NewFacts(cache, logger).Gather(ctx, tx, cfg.Device.Address)
		if err != nil {
			logger.Warn().Err(err).Msg("could not gather device facts")
		}
		model = adapter.Model(facts)
	}

	state := apply.NewState(model)
	if cfg.Store.TracePath != "" {
		rec, err := trace.Open(cfg.Store.TracePath)
		if err != nil {
			ds.Close()
			return nil, err
		}
		ds.recorder = rec
		tx.SetRecorder(state.ID, rec)
	}

	ds.Session = apply.New(state, apply.Deps{
		Device:    tx,
		Store:     ds.store,
		Cache:     cache,
		Decrypter: decrypter,
	}, cfg.SessionOptions(), logger)

	logger.Info().
		Str("device", cfg.Device.Address).
		Str("model", model).
		Str("session", state.ID).
		Msg("device session open")
	return ds, nil
}

// loadTransaction registers the before and after snapshots of a transaction
func (d *deviceSession) loadTransaction(txID, fromPath, toPath string) error {
	from, err := readSnapshot(fromPath)
	if err != nil {
		return err
	}
	to, err := readSnapshot(toPath)
	if err != nil {
		return err
	}
	d.store.Load(txID, from, to)
	return nil
}

// Close releases the connection, the trace file and the store
func (d *deviceSession) Close() {
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Debug().Err(err).Msg("close connection")
		}
	}
	if d.recorder != nil {
		d.recorder.Close()
	}
	if err := d.repo.Close(); err != nil {
		d.logger.Debug().Err(err).Msg("close store")
	}
}

// readSnapshot decodes a snapshot file; an empty path is an empty snapshot
func readSnapshot(path string) (*datastore.Snapshot, error) {
	if path == "" {
		return datastore.NewSnapshot(), nil
	}
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// readDiff returns the CLI text in path, or stdin for "-"
func readDiff(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read diff: %w", err)
	}
	return string(data), nil
}
