package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
)

type memWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &memWriter{}
	reg := prometheus.NewRegistry()
	p, err := NewProducer(WithWriter(w), WithRegisterer(reg))
	if err != nil {
		t.Fatal(err)
	}

	payload := map[string]interface{}{"coin": "bitcoin", "days": 7}
	if err := p.Publish(context.Background(), "snapshots", []byte("bitcoin"), payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "snapshots" || string(m.Key) != "bitcoin" {
		t.Errorf("message = %+v", m)
	}
	if !strings.Contains(string(m.Value), `"coin":"bitcoin"`) {
		t.Errorf("value = %s", m.Value)
	}
	if got := testutil.ToFloat64(p.metrics.msgs.WithLabelValues("snapshots", "snappy", "ok")); got != 1 {
		t.Errorf("ok messages = %v", got)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("close: %v closed=%v", err, w.closed)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p, _ := NewProducer(WithWriter(&memWriter{err: boom}))

	err := p.Publish(context.Background(), "snapshots", nil, "raw")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}
