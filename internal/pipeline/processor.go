package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subgraphgen/internal/generator"
	"subgraphgen/internal/graph"
	"subgraphgen/internal/logger"
	"subgraphgen/internal/metrics"
	"subgraphgen/internal/serialization"
	"subgraphgen/internal/transform/processstop"
	"subgraphgen/pkg/models"
)

var plog = logger.Named("pipeline")

// BatchResult is the output of one batch. Payloads is empty when the merged
// graph had no content; that is not a failure.
type BatchResult struct {
	ID       string
	Events   int
	Payloads [][]byte
	Stats    graph.MergeStats
}

// Processor runs a single batch through build, merge and encode. It owns a
// serializer and must not be shared between goroutines.
type Processor struct {
	generator  *generator.Generator
	serializer *serialization.SubgraphSerializer
	workers    int
	metrics    *metrics.Registry
}

// NewProcessor creates a processor. reg may be nil.
func NewProcessor(gen *generator.Generator, serializer *serialization.SubgraphSerializer, workers int, reg *metrics.Registry) *Processor {
	if workers <= 0 {
		workers = 8
	}
	return &Processor{
		generator:  gen,
		serializer: serializer,
		workers:    workers,
		metrics:    reg,
	}
}

// ProcessEvents builds every event into a fragment, merges the fragments in
// input order and encodes the result. Any failure fails the whole batch.
func (p *Processor) ProcessEvents(ctx context.Context, events []*models.RawEvent) (*BatchResult, error) {
	return p.process(ctx, len(events), func(i int) (*graph.Graph, error) {
		return p.generator.Generate(events[i])
	})
}

// ProcessMessages is ProcessEvents for undecoded JSON messages.
func (p *Processor) ProcessMessages(ctx context.Context, messages [][]byte) (*BatchResult, error) {
	return p.process(ctx, len(messages), func(i int) (*graph.Graph, error) {
		event, err := processstop.Parse(messages[i])
		if err != nil {
			return nil, err
		}
		return p.generator.Generate(event)
	})
}

func (p *Processor) process(ctx context.Context, n int, build func(i int) (*graph.Graph, error)) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{ID: uuid.NewString(), Events: n}

	fragments, err := p.buildFragments(ctx, n, build)
	if err != nil {
		p.observeFailure(n, start)
		return nil, fmt.Errorf("batch %s: %w", result.ID, err)
	}

	payloads, stats, err := p.serializer.SerializeCompletedEvents(fragments)
	if err != nil {
		p.observeFailure(n, start)
		return nil, fmt.Errorf("batch %s: %w", result.ID, err)
	}
	result.Payloads = payloads
	result.Stats = stats

	plog.Debugf("Batch %s: events=%d nodes=%d->%d edges=%d->%d payloads=%d",
		result.ID, n, stats.PreNodes, stats.Nodes, stats.PreEdges, stats.Edges, len(payloads))
	p.observeSuccess(result, start)
	return result, nil
}

// buildFragments runs build concurrently and stores each fragment at its
// input index so the merge sees a fixed order.
func (p *Processor) buildFragments(ctx context.Context, n int, build func(i int) (*graph.Graph, error)) ([]*graph.Graph, error) {
	fragments := make([]*graph.Graph, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fragment, err := build(i)
			if err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
			fragments[i] = fragment
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}

func (p *Processor) observeFailure(events int, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	p.metrics.BatchesTotal.WithLabelValues(metrics.ResultFailed).Inc()
	p.metrics.EventsTotal.WithLabelValues(metrics.ResultFailed).Add(float64(events))
}

func (p *Processor) observeSuccess(result *BatchResult, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	p.metrics.EventsTotal.WithLabelValues(metrics.ResultOK).Add(float64(result.Events))
	p.metrics.PreMergeNodes.Add(float64(result.Stats.PreNodes))
	p.metrics.PreMergeEdges.Add(float64(result.Stats.PreEdges))
	p.metrics.MergedNodes.Add(float64(result.Stats.Nodes))
	p.metrics.MergedEdges.Add(float64(result.Stats.Edges))
	if len(result.Payloads) == 0 {
		p.metrics.BatchesTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		return
	}
	p.metrics.BatchesTotal.WithLabelValues(metrics.ResultOK).Inc()
	for _, payload := range result.Payloads {
		p.metrics.PayloadBytes.Observe(float64(len(payload)))
	}
}
