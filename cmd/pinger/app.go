package main

import (
	"fmt"

	ping "github.com/digineo/go-pinger"
	"github.com/digineo/go-pinger/config"
	"github.com/digineo/go-pinger/internal/logging"
	"github.com/digineo/go-pinger/monitor"
	"github.com/digineo/go-pinger/settings"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds what every command needs.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *settings.Store
	pinger *ping.Pinger
}

// setup loads the configuration, builds the logger and opens the settings
// database. With a capture, log lines are kept in memory instead of going
// to stderr.
func setup(capture *logInterceptor) (*app, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	if flags.database != "" {
		cfg.Database = flags.database
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	if capture != nil {
		level, _ := logging.ParseLevel(cfg.Log.Level)
		if cfg.Log.File == "" {
			logger = zap.New(capture.core(level))
		} else {
			logger = zap.New(zapcore.NewTee(logger.Core(), capture.core(level)))
		}
	}
	logging.Install(logger)

	store, err := settings.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}, nil
}

func (a *app) Close() {
	if a.pinger != nil {
		a.pinger.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing settings database", zap.Error(err))
	}
	a.logger.Sync() //nolint:errcheck
}

// prober returns the configured probe executor. In auto mode the system
// ping utility is used if the ICMP sockets cannot be opened.
func (a *app) prober() (monitor.Prober, error) {
	probe := a.cfg.Probe

	if probe.Mode == config.ModeExec {
		a.logger.Info("using system ping", zap.String("command", probe.Command))
		return monitor.NewExecProber(probe.Command, probe.Timeout), nil
	}

	pinger, err := ping.New(probe.Bind4, probe.Bind6, probe.Privileged)
	if err != nil {
		if probe.Mode == config.ModeICMP {
			return nil, fmt.Errorf("opening ICMP sockets: %w", err)
		}
		a.logger.Warn("ICMP sockets unavailable, falling back to system ping", zap.Error(err))
		return monitor.NewExecProber(probe.Command, probe.Timeout), nil
	}

	pinger.Timeout = probe.Timeout
	pinger.SetPayloadSize(probe.PayloadSize)
	a.pinger = pinger
	a.logger.Info("using ICMP sockets",
		zap.Bool("privileged", probe.Privileged),
		zap.Uint16("payload_size", probe.PayloadSize))

	return monitor.NewICMPProber(pinger, monitor.NewResolver(probe.DNSCache), probe.Timeout), nil
}

// targets returns the stored targets, seeding the database from the
// configuration on first use.
func (a *app) targets() ([]monitor.Target, error) {
	has, err := a.store.HasTargets()
	if err != nil {
		return nil, err
	}
	if !has {
		if seed := a.cfg.SeedTargets(); seed != nil {
			if err := a.store.SetTargets(seed); err != nil {
				return nil, err
			}
			return seed, nil
		}
	}
	return a.store.Targets()
}

// coordinator builds a coordinator from the stored settings. Target and
// configuration changes are written back to the database.
func (a *app) coordinator() (*monitor.Coordinator, error) {
	prober, err := a.prober()
	if err != nil {
		return nil, err
	}
	cfg, _, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	targets, err := a.targets()
	if err != nil {
		return nil, err
	}

	registry := monitor.NewRegistry(targets)
	registry.Observe(func(targets []monitor.Target) {
		if err := a.store.SetTargets(targets); err != nil {
			a.logger.Error("saving targets", zap.Error(err))
		}
	})

	coord := monitor.NewCoordinator(prober, registry, cfg, a.cfg.HistorySize)
	coord.OnConfigChange(func(cfg monitor.Config) {
		if err := a.store.Save(cfg); err != nil {
			a.logger.Error("saving settings", zap.Error(err))
		}
	})
	return coord, nil
}
