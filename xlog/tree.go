package xlog

import (
	"context"

	"go.uber.org/zap"

	"github.com/benz9527/xordtree/lib/tree"
)

// NewOrderedTreeLogger returns the logger to hand to
// tree.WithOrderedTreeLogger. Every line carries the OrderedTree
// component, the tree name and the context fields registered on logger
// that ctx holds. A nil logger yields nil, which leaves the tree silent.
func NewOrderedTreeLogger(ctx context.Context, logger XLogger, name string) tree.Logger {
	if logger == nil {
		return nil
	}
	return newComponentXLogger(logger, "OrderedTree", nil).
		WithContext(ctx, zap.String("tree", name))
}
