// Package relocation moves the messages of one queue into another.
package relocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ottermq/qhop/internal/transport"
	"github.com/rs/zerolog"
)

const (
	DefaultInactivityTimeout = 3 * time.Second
	DefaultProgressBatch     = 1000
)

// Options configures an Engine.
type Options struct {
	// InactivityTimeout is the quiet period after which the source is
	// considered drained.
	InactivityTimeout time.Duration
	// ProgressBatch controls how often progress is logged, in messages.
	ProgressBatch int
	// ConfirmDelivery waits for a publisher confirm before acking the source.
	ConfirmDelivery bool

	Logger zerolog.Logger
}

// Engine relocates messages between queues of the same virtual host.
type Engine struct {
	dialer transport.Dialer
	opts   Options
	logger zerolog.Logger
}

func NewEngine(dialer transport.Dialer, opts Options) *Engine {
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	if opts.ProgressBatch <= 0 {
		opts.ProgressBatch = DefaultProgressBatch
	}
	return &Engine{dialer: dialer, opts: opts, logger: opts.Logger}
}

// Result describes a finished or interrupted relocation.
type Result struct {
	Source      string
	Destination string
	Moved       int
	Elapsed     time.Duration
}

// Empty reports whether nothing was moved.
func (r Result) Empty() bool {
	return r.Moved == 0
}

// Relocate moves every message currently in source to destination, in order.
// Each message is acked on the source only after it was published (and, with
// ConfirmDelivery, confirmed) on the destination, so a crash can duplicate
// but not lose a message. On error the returned Result holds the number of
// messages already moved; they are not moved back.
func (e *Engine) Relocate(ctx context.Context, vhost, source, destination string) (res Result, err error) {
	res = Result{Source: source, Destination: destination}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	logger := e.logger.With().Str("vhost", vhost).Str("source", source).Str("destination", destination).Logger()

	src, err := e.dialer.Dial(ctx, vhost)
	if err != nil {
		return res, fmt.Errorf("source connection: %w", err)
	}
	defer closeQuietly(logger, "source", src)

	dst, err := e.dialer.Dial(ctx, vhost)
	if err != nil {
		return res, fmt.Errorf("destination connection: %w", err)
	}
	defer closeQuietly(logger, "destination", dst)

	if _, err := dst.DeclarePassive(destination); err != nil {
		return res, fmt.Errorf("destination queue %q: %w", destination, err)
	}
	if e.opts.ConfirmDelivery {
		if err := dst.Confirm(); err != nil {
			return res, err
		}
	}

	stream, err := src.Consume(source, e.opts.InactivityTimeout)
	if err != nil {
		return res, err
	}
	defer stream.Close()

	for {
		d, err := stream.Next(ctx)
		if errors.Is(err, transport.ErrInactive) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("consume from %q after %d messages: %w", source, res.Moved, err)
		}

		if err := dst.Publish(ctx, destination, d.Message); err != nil {
			if nackErr := src.Nack(d.Tag, true); nackErr != nil {
				logger.Error().Err(nackErr).Uint64("delivery_tag", d.Tag).Msg("Failed to requeue message")
			}
			return res, fmt.Errorf("publish to %q after %d messages: %w", destination, res.Moved, err)
		}
		if err := src.Ack(d.Tag); err != nil {
			return res, fmt.Errorf("ack on %q after %d messages: %w", source, res.Moved, err)
		}

		res.Moved++
		if res.Moved%e.opts.ProgressBatch == 0 {
			logger.Info().Int("moved", res.Moved).Msg("Relocation in progress")
		}
	}

	logger.Info().Int("moved", res.Moved).Dur("elapsed", time.Since(start)).Msg("Message transfer complete")
	return res, nil
}

func closeQuietly(logger zerolog.Logger, side string, s transport.Session) {
	if err := s.Close(); err != nil {
		logger.Warn().Err(err).Str("side", side).Msg("Failed to close connection")
	}
}
