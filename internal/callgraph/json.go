package callgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
)

// JSONProvider loads a call graph computed by an external whole-program
// analysis. The file holds a Graph in its JSON form.
type JSONProvider struct {
	path   string
	logger *logrus.Logger
}

// NewJSONProvider creates a provider reading the graph at path.
func NewJSONProvider(path string, logger *logrus.Logger) *JSONProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &JSONProvider{path: path, logger: logger}
}

// Build reads, decodes and validates the graph.
func (p *JSONProvider) Build(ctx context.Context) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, cerrors.CallGraphError(err, "failed to read call graph")
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, cerrors.CallGraphError(fmt.Errorf("decode %s: %w", p.path, err), "failed to decode call graph")
	}
	if err := g.Validate(); err != nil {
		return nil, cerrors.CallGraphError(err, "call graph is inconsistent")
	}

	p.logger.WithFields(logrus.Fields{
		"path":    p.path,
		"methods": len(g.Methods),
		"nodes":   len(g.Nodes),
		"edges":   g.EdgeCount(),
	}).Debug("call graph loaded")
	return &g, nil
}
