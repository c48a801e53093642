package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Concrete franz-go based constructor, writer and group wrappers.

type Config struct {
	Brokers  []string
	TLS      *tls.Config
	ClientID string
	// FromStart makes new groups begin at the earliest offset instead of the latest.
	FromStart              bool
	DisableIdempotentWrite bool
}

func (c Config) baseOpts() []kgo.Opt {
	opts := []kgo.Opt{kgo.SeedBrokers(c.Brokers...)}
	if c.ClientID != "" {
		opts = append(opts, kgo.ClientID(c.ClientID))
	}

	if c.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(c.TLS))
	}

	return opts
}

type kgoWriter struct{ cl *kgo.Client }

func (w kgoWriter) Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if len(headers) > 0 {
		rec.Headers = make([]kgo.RecordHeader, 0, len(headers))
		for k, v := range headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
	}

	return w.cl.ProduceSync(ctx, rec).FirstErr()
}

type kgoGroup struct{ cl *kgo.Client }

func (g kgoGroup) Poll(ctx context.Context) ([]Record, error) {
	fetches := g.cl.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, kgo.ErrClientClosed
	}

	var errs []error

	fetches.EachError(func(topic string, partition int32, err error) {
		errs = append(errs, fmt.Errorf("%s[%d]: %w", topic, partition, err))
	})

	var recs []Record

	fetches.EachRecord(func(r *kgo.Record) {
		rec := Record{Topic: r.Topic, Key: r.Key, Value: r.Value}
		if len(r.Headers) > 0 {
			rec.Headers = make(map[string]string, len(r.Headers))
			for _, h := range r.Headers {
				rec.Headers[h.Key] = string(h.Value)
			}
		}

		recs = append(recs, rec)
	})

	return recs, errors.Join(errs...)
}

func (g kgoGroup) Commit(ctx context.Context) error { return g.cl.CommitUncommittedOffsets(ctx) }

func (g kgoGroup) Close() { g.cl.Close() }

// NewWithKgo builds a franz-go backed Runtime: one producer client for Publish
// and one consumer-group client per channel. The returned cleanup closes all of them.
func NewWithKgo(cfg Config, logger *slog.Logger) (*Runtime, func(), error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", berr.ErrNotConfigured)
	}

	popts := cfg.baseOpts()
	if cfg.DisableIdempotentWrite {
		popts = append(popts, kgo.DisableIdempotentWrite())
	}

	cl, err := kgo.NewClient(popts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client init: %w", berr.ErrPublishFailed, err)
	}

	groups := func(group string, topics []string) (Group, error) {
		opts := append(cfg.baseOpts(),
			kgo.ConsumerGroup(group),
			kgo.ConsumeTopics(topics...),
			kgo.DisableAutoCommit(),
		)
		if cfg.FromStart {
			opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
		}

		gcl, err := kgo.NewClient(opts...)
		if err != nil {
			return nil, err
		}

		return kgoGroup{cl: gcl}, nil
	}

	rt := New(kgoWriter{cl: cl}, groups, WithLogger(logger))
	cleanup := func() {
		_ = rt.Close()
		cl.Close()
	}

	return rt, cleanup, nil
}
