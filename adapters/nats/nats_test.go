package nats_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/next-trace/scg-consumer-bus/adapters/nats"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

type sub struct {
	subject, queue string
	fn             nats.MsgHandler
	closed         bool
}

// fakeClient is a single-process broker: Publish hands the message to the
// first live subscriber of each queue group on the subject.
type fakeClient struct {
	mu    sync.Mutex
	subs  []*sub
	calls []struct {
		subject string
		data    []byte
		headers map[string]string
	}
	subErr error
	err    error
}

func (f *fakeClient) QueueSubscribe(subject, queue string, fn nats.MsgHandler) (func() error, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	s := &sub{subject: subject, queue: queue, fn: fn}
	f.subs = append(f.subs, s)

	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		s.closed = true

		return nil
	}, nil
}

func (f *fakeClient) Publish(subject string, data []byte, headers map[string]string) error {
	f.mu.Lock()
	f.calls = append(f.calls, struct {
		subject string
		data    []byte
		headers map[string]string
	}{subject, data, headers})

	if f.err != nil {
		f.mu.Unlock()
		return f.err
	}

	seen := map[string]bool{}

	var targets []*sub

	for _, s := range f.subs {
		if s.closed || s.subject != subject || seen[s.queue] {
			continue
		}

		seen[s.queue] = true
		targets = append(targets, s)
	}
	f.mu.Unlock()

	for _, s := range targets {
		s.fn(subject, data, headers)
	}

	return nil
}

type PaymentCaptured struct{ ID string }

func TestNATS_QueueGroupPerChannel(t *testing.T) {
	fc := &fakeClient{}
	rt := nats.New(fc)

	var receipts, ledger []string

	consume := func(into *[]string) func(cbus.ChannelConfig) error {
		return func(cfg cbus.ChannelConfig) error {
			return cfg.Consume(reflect.TypeFor[PaymentCaptured](), func(_ context.Context, msg any) error {
				*into = append(*into, msg.(PaymentCaptured).ID)
				return nil
			})
		}
	}

	if err := rt.CreateChannel("SendReceipt", consume(&receipts)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := rt.CreateChannel("PostToLedger", consume(&ledger)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := rt.CreateChannel("SendReceipt", nil); !errors.Is(err, berr.ErrChannelExists) {
		t.Fatalf("want ErrChannelExists, got %v", err)
	}

	if err := rt.Start(t.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(fc.subs) != 2 || fc.subs[0].subject != "msg.PaymentCaptured" || fc.subs[0].queue != "SendReceipt" {
		t.Fatalf("subscriptions: %+v", fc.subs)
	}

	if err := rt.Publish(t.Context(), PaymentCaptured{ID: "p-1"}, cbus.PublishOptions{Key: "k"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(receipts) != 1 || len(ledger) != 1 || receipts[0] != "p-1" {
		t.Fatalf("deliveries: receipts=%v ledger=%v", receipts, ledger)
	}

	h := fc.calls[0].headers
	if h[nats.HeaderMessageType] != "PaymentCaptured" || h["key"] != "k" {
		t.Fatalf("headers: %v", h)
	}

	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := rt.Publish(t.Context(), PaymentCaptured{ID: "p-2"}, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish after close: %v", err)
	}

	if len(receipts) != 1 {
		t.Fatalf("closed runtime must not deliver: %v", receipts)
	}
}

func TestNATS_SubscribeFailure(t *testing.T) {
	fc := &fakeClient{subErr: errors.New("permissions violation")}
	rt := nats.New(fc)

	if err := rt.CreateChannel("c", func(cfg cbus.ChannelConfig) error {
		return cfg.Consume(reflect.TypeFor[PaymentCaptured](), func(context.Context, any) error { return nil })
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := rt.Start(t.Context()); !errors.Is(err, berr.ErrSubscribeFailed) {
		t.Fatalf("want ErrSubscribeFailed, got %v", err)
	}
}

func TestNATS_PublishErrors(t *testing.T) {
	fc := &fakeClient{err: errors.New("boom")}
	rt := nats.New(fc)

	if err := rt.Publish(t.Context(), PaymentCaptured{}, cbus.PublishOptions{}); !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want ErrPublishFailed, got %v", err)
	}

	fc.err = context.DeadlineExceeded
	if err := rt.Publish(t.Context(), PaymentCaptured{}, cbus.PublishOptions{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want context error, got %v", err)
	}

	if err := nats.New(nil).Publish(t.Context(), PaymentCaptured{}, cbus.PublishOptions{}); !errors.Is(err, berr.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}

	if err := rt.Publish(t.Context(), make(chan int), cbus.PublishOptions{}); !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}
}
