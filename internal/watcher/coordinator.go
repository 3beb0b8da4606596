package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Coordinator routes debounced source changes to an analyzer.
type Coordinator struct {
	files    FileWatcher
	analyzer Analyzer
	logger   *logrus.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(files FileWatcher, analyzer Analyzer, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Coordinator{files: files, analyzer: analyzer, logger: logger}
}

// Run watches until ctx is cancelled. A failed analysis is logged and the
// next change triggers another one.
func (c *Coordinator) Run(ctx context.Context) error {
	err := c.files.Start(ctx, func(files []string) {
		c.handleFileChange(ctx, files)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	if err := c.files.Stop(); err != nil {
		c.logger.WithError(err).Warn("file watcher stop failed")
	}
	return nil
}

func (c *Coordinator) handleFileChange(ctx context.Context, files []string) {
	if len(files) == 0 {
		return
	}
	start := time.Now()
	c.logger.WithField("files", len(files)).Info("sources changed, re-analyzing")

	if err := c.analyzer.Analyze(ctx, files); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.WithError(err).Error("analysis failed")
		return
	}
	c.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("analysis updated")
}
