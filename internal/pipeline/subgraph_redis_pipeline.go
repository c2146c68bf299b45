package pipeline

import (
	"context"
	"sync"
	"time"

	"subgraphgen/internal/metrics"
)

// MessageSource yields raw event messages. Pop returns nil, nil when no
// message arrived before its own timeout.
type MessageSource interface {
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

// RedisSubgraphPipeline pops events from Redis, cuts them into batches and
// hands each batch to a Processor. Payloads go to the writer; the raw
// messages of a failed batch go to the dead letter writer when one is set.
type RedisSubgraphPipeline struct {
	source        MessageSource
	processor     *Processor
	writer        PayloadWriter
	deadLetter    RawWriter
	metrics       *metrics.Registry
	batchSize     int
	flushInterval time.Duration
	retryDelay    time.Duration
	drainTimeout  time.Duration
}

// NewRedisSubgraphPipeline creates the batching driver. deadLetter and reg may be nil.
func NewRedisSubgraphPipeline(source MessageSource, processor *Processor, writer PayloadWriter, deadLetter RawWriter, reg *metrics.Registry, batchSize int, flushInterval time.Duration) *RedisSubgraphPipeline {
	return &RedisSubgraphPipeline{
		source:        source,
		processor:     processor,
		writer:        writer,
		deadLetter:    deadLetter,
		metrics:       reg,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retryDelay:    1 * time.Second,
		drainTimeout:  10 * time.Second,
	}
}

// Run starts the pipeline loop and blocks until ctx is cancelled. The batch
// pending at cancellation is still processed.
func (p *RedisSubgraphPipeline) Run(ctx context.Context) error {
	plog.Infof("Redis subgraph pipeline started (batch_size=%d, flush_interval=%s)", p.batchSize, p.flushInterval)

	if p.batchSize <= 0 {
		p.batchSize = 1000
	}
	if p.flushInterval <= 0 {
		p.flushInterval = 2 * time.Second
	}

	msgCh := make(chan []byte, p.batchSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	p.batchLoop(ctx, msgCh)
	wg.Wait()
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *RedisSubgraphPipeline) Close() error {
	if p.deadLetter != nil {
		if err := p.deadLetter.Close(); err != nil {
			plog.Errorf("Failed to close dead letter writer: %v", err)
		}
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			plog.Errorf("Failed to close payload writer: %v", err)
		}
	}
	if p.source != nil {
		return p.source.Close()
	}
	return nil
}

func (p *RedisSubgraphPipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.source.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			plog.Errorf("Failed to pop redis message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if payload == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func (p *RedisSubgraphPipeline) batchLoop(ctx context.Context, in <-chan []byte) {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	var batch [][]byte
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		p.flush(ctx, batch)
		batch = nil
	}
	drain := func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.drainTimeout)
		defer cancel()
		flush(drainCtx)
	}

	for {
		select {
		case <-ctx.Done():
			// drain what the reader already handed over, then flush once more
			for msg := range in {
				batch = append(batch, msg)
			}
			drain()
			return
		case <-ticker.C:
			// once cancelled, the pending batch belongs to drain
			if ctx.Err() == nil {
				flush(ctx)
			}
		case msg, ok := <-in:
			if !ok {
				drain()
				return
			}
			batch = append(batch, msg)
			if len(batch) >= p.batchSize && ctx.Err() == nil {
				flush(ctx)
			}
		}
	}
}

// flush processes one batch to completion. Processing ignores cancellation
// of ctx; ctx only bounds how long a failing sink is retried.
func (p *RedisSubgraphPipeline) flush(ctx context.Context, batch [][]byte) {
	result, err := p.processor.ProcessMessages(context.WithoutCancel(ctx), batch)
	if err != nil {
		plog.Errorf("Batch of %d events failed: %v", len(batch), err)
		p.sendToDeadLetter(ctx, batch)
		return
	}
	if len(result.Payloads) == 0 {
		plog.Debugf("Batch %s produced an empty graph; nothing to send", result.ID)
		return
	}
	if !p.retry(ctx, "payload", func() error { return p.writer.WritePayloads(result.Payloads) }) {
		plog.Errorf("Gave up writing batch %s; dead-lettering its %d events", result.ID, len(batch))
		p.sendToDeadLetter(ctx, batch)
	}
}

func (p *RedisSubgraphPipeline) sendToDeadLetter(ctx context.Context, batch [][]byte) {
	if p.deadLetter == nil {
		plog.Warnf("No dead letter sink; dropping %d events", len(batch))
		return
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), p.drainTimeout)
		defer cancel()
	}
	if p.retry(ctx, "dead_letter", func() error { return p.deadLetter.WriteRawMessages(batch) }) && p.metrics != nil {
		p.metrics.DeadLetteredEvents.Add(float64(len(batch)))
	}
}

// retry calls write until it succeeds or ctx ends, and reports success.
func (p *RedisSubgraphPipeline) retry(ctx context.Context, sink string, write func() error) bool {
	for {
		err := write()
		if err == nil {
			return true
		}
		plog.Errorf("Failed to write to %s sink: %v", sink, err)
		if p.metrics != nil {
			p.metrics.SinkWriteErrors.WithLabelValues(sink).Inc()
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.retryDelay):
		}
	}
}
