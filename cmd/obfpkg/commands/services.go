package commands

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/obfpkg/internal/config"
	"git.home.luguber.info/inful/obfpkg/internal/eventstore"
	"git.home.luguber.info/inful/obfpkg/internal/logfields"
	"git.home.luguber.info/inful/obfpkg/internal/metrics"
	"git.home.luguber.info/inful/obfpkg/internal/pipeline"
)

// services holds the optional metrics and history backends of one run.
type services struct {
	metrics     *metrics.PrometheusRecorder
	metricsFile string
	store       *eventstore.SQLiteStore
}

// openServices enables the textfile exporter and the history store when a
// path is configured. Flags override the configuration file.
func openServices(cfg *config.Config, metricsFile, historyDB string) (*services, error) {
	s := &services{metricsFile: firstNonEmpty(metricsFile, cfg.Metrics.Textfile)}
	if s.metricsFile != "" {
		s.metrics = metrics.NewPrometheusRecorder(prom.NewRegistry())
	}
	if db := firstNonEmpty(historyDB, cfg.History.Database); db != "" {
		store, err := eventstore.NewSQLiteStore(db)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	return s, nil
}

// options returns the coordinator options for the enabled backends.
func (s *services) options() []pipeline.Option {
	var opts []pipeline.Option
	if s.metrics != nil {
		opts = append(opts, pipeline.WithRecorder(s.metrics))
	}
	if s.store != nil {
		opts = append(opts, pipeline.WithStore(s.store))
	}
	return opts
}

// Close flushes metrics and closes the store. Failures are logged only.
func (s *services) Close() {
	if s.metrics != nil {
		if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(s.metricsFile), logfields.Error(err))
		} else {
			slog.Debug("Metrics written", logfields.Path(s.metricsFile))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close history database", logfields.Error(err))
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
