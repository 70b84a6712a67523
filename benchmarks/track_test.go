package benchmarks

import (
	"testing"
	"time"

	trkerrors "github.com/engagekit/tracker/pkg/tracker/errors"
	"github.com/engagekit/tracker/pkg/tracker/event"
	"github.com/engagekit/tracker/pkg/tracker/task"
	"github.com/engagekit/tracker/pkg/tracker/transmit"
)

func sampleValues() event.Values {
	return event.Values{
		"amount":   500,
		"currency": "USD",
		"sku":      "A-1042",
	}
}

// BenchmarkNewNamedEvent measures event construction with a payload.
func BenchmarkNewNamedEvent(b *testing.B) {
	values := sampleValues()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = event.NewNamed("purchase", values)
	}
}

// BenchmarkNewViewEvent measures view construction with title defaulting.
func BenchmarkNewViewEvent(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = event.NewView("product_detail", nil)
	}
}

// BenchmarkNewTask measures task handle creation.
func BenchmarkNewTask(b *testing.B) {
	evt := event.NewNamed("purchase", sampleValues())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = task.New(evt, "visitor-1", "")
	}
}

// BenchmarkEventMarshal measures wire encoding of a single event.
func BenchmarkEventMarshal(b *testing.B) {
	evt := event.NewView("product_detail", sampleValues())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = evt.MarshalJSON()
	}
}

// BenchmarkEncodeBatch_16 measures batch encoding at the default size.
func BenchmarkEncodeBatch_16(b *testing.B) {
	batch := make([]*task.Task, 16)
	for i := range batch {
		batch[i] = task.New(event.NewNamed("purchase", sampleValues()), "visitor-1", "")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = transmit.EncodeBatch(batch)
	}
}

// BenchmarkEncodeBatch_256 measures batch encoding at queue capacity.
func BenchmarkEncodeBatch_256(b *testing.B) {
	batch := make([]*task.Task, 256)
	for i := range batch {
		batch[i] = task.New(event.NewNamed("purchase", sampleValues()), "visitor-1", "")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = transmit.EncodeBatch(batch)
	}
}

// BenchmarkTrack_QueueOnly measures the hot ingest path with the worker
// never delivering (no endpoint reachable, huge flush interval).
func BenchmarkTrack_QueueOnly(b *testing.B) {
	tx := transmit.New(transmit.Config{
		Endpoint:      "http://127.0.0.1:0/track",
		QueueSize:     b.N + 1,
		BatchSize:     b.N + 1,
		FlushInterval: time.Hour,
		Retry:         trkerrors.NoRetry,
	})
	defer tx.Close()

	evt := event.NewNamed("purchase", sampleValues())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tx.Track(task.New(evt, "visitor-1", ""))
	}
}
