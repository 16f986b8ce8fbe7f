package tree

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xordtree/observability"
)

const (
	RBTreeStatsComponent = "rbtree"
	rbTreeOpResultKey    = "rbtree.op.result"
)

type opResult string

const (
	opResultOK        opResult = "ok"
	opResultDuplicate opResult = "duplicate"
	opResultNotFound  opResult = "not_found"
	opResultExhausted opResult = "exhausted"
)

type rbTreeStats struct {
	nodeCount   metric.Int64UpDownCounter
	insertCount metric.Int64Counter
	removeCount metric.Int64Counter
	rotateCount metric.Int64Counter
	resultAttrs map[opResult]metric.AddOption
}

func (stats *rbTreeStats) RecordNodeCount(delta int64) {
	if stats == nil || delta == 0 {
		return
	}
	stats.nodeCount.Add(context.Background(), delta)
}

func (stats *rbTreeStats) IncreaseInsertCount(res opResult) {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1, stats.resultAttrs[res])
}

func (stats *rbTreeStats) IncreaseRemoveCount(res opResult) {
	if stats == nil {
		return
	}
	stats.removeCount.Add(context.Background(), 1, stats.resultAttrs[res])
}

func (stats *rbTreeStats) IncreaseRotateCount() {
	if stats == nil {
		return
	}
	stats.rotateCount.Add(context.Background(), 1)
}

func newRBTreeStats(name string) *rbTreeStats {
	meter := otel.Meter(observability.MeterName(RBTreeStatsComponent, name))
	stats := &rbTreeStats{
		nodeCount: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			"rbtree.node.count",
			metric.WithDescription("The number of live nodes in the rbtree."),
		)),
		insertCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbtree.insert.count",
			metric.WithDescription("The number of insert calls, by result."),
		)),
		removeCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbtree.remove.count",
			metric.WithDescription("The number of remove calls, by result."),
		)),
		rotateCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbtree.rotate.count",
			metric.WithDescription("The number of single rotations done while rebalancing."),
		)),
		resultAttrs: make(map[opResult]metric.AddOption, 4),
	}
	for _, res := range []opResult{opResultOK, opResultDuplicate, opResultNotFound, opResultExhausted} {
		stats.resultAttrs[res] = metric.WithAttributeSet(attribute.NewSet(
			attribute.String(rbTreeOpResultKey, string(res)),
		))
	}
	return stats
}
