package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/codeanalyzer/internal/analyzer"
	"github.com/mvp-joe/codeanalyzer/internal/config"
	"github.com/mvp-joe/codeanalyzer/internal/discovery"
	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
	"github.com/mvp-joe/codeanalyzer/internal/watcher"
)

// reanalyzer re-runs the whole analysis on every batch of changes. The unit
// cache keeps unchanged files from being extracted again.
type reanalyzer struct {
	analyzer *analyzer.Analyzer
	out      io.Writer
	output   string
	logger   *logrus.Logger
}

var _ watcher.Analyzer = (*reanalyzer)(nil)

func (r *reanalyzer) Analyze(ctx context.Context, changed []string) error {
	r.logger.WithField("changed", changed).Debug("changed sources")
	return analyzeOnce(ctx, r.out, r.analyzer, r.output, r.logger)
}

// watch analyzes once, then again after every change to a discovered source,
// until ctx is cancelled.
func watch(ctx context.Context, out io.Writer, a *analyzer.Analyzer, cfg *config.Config, output string, logger *logrus.Logger) error {
	disc, err := discovery.New(a.Root(), cfg.Discovery.Include, cfg.Discovery.Exclude)
	if err != nil {
		return cerrors.Wrap(err, cerrors.KindConfig, cerrors.SeverityCritical, "invalid discovery patterns")
	}

	r := &reanalyzer{analyzer: a, out: out, output: output, logger: logger}
	if err := r.Analyze(ctx, nil); err != nil {
		if cerrors.IsFatal(err) || ctx.Err() != nil {
			return err
		}
		logger.WithError(err).Error("initial analysis incomplete")
	}

	files, err := watcher.NewFileWatcher([]string{a.Root()},
		watcher.WithLogger(logger),
		watcher.WithSkipDirs(discovery.SkipDirs()...),
		watcher.WithMatcher(func(path string) bool {
			rel, err := filepath.Rel(a.Root(), path)
			if err != nil {
				return false
			}
			return disc.Matches(rel)
		}),
	)
	if err != nil {
		return err
	}

	logger.WithField("root", a.Root()).Info("watching for changes, press Ctrl+C to stop")
	return watcher.NewCoordinator(files, r, logger).Run(ctx)
}
