package queue

import (
	"fmt"
	"testing"
)

func BenchmarkBuilderAdd(b *testing.B) {
	builder := NewBuilder(b.N+1000, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder.Add(&Request{
			URL: fmt.Sprintf("https://example.com/page/%d", i),
		})
	}
}

func BenchmarkBuilderAddDuplicates(b *testing.B) {
	builder := NewBuilder(1000, nil)
	for i := 0; i < 1000; i++ {
		builder.Add(&Request{
			URL: fmt.Sprintf("https://example.com/page/%d", i),
		})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder.Add(&Request{
			URL: fmt.Sprintf("https://example.com/page/%d", i%1000),
		})
	}
}

func BenchmarkFetchNext(b *testing.B) {
	builder := NewBuilder(b.N+1000, nil)
	for i := 0; i < b.N; i++ {
		builder.Add(&Request{
			URL: fmt.Sprintf("https://example.com/page/%d", i),
		})
	}
	l, err := builder.Build(nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.FetchNext()
	}
}

func BenchmarkFetchHandleCycle(b *testing.B) {
	builder := NewBuilder(b.N+1000, nil)
	for i := 0; i < b.N; i++ {
		builder.Add(&Request{
			URL: fmt.Sprintf("https://example.com/page/%d", i),
		})
	}
	l, err := builder.Build(nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := l.FetchNext()
		if r != nil {
			l.MarkHandled(r.Key)
		}
	}
}

func BenchmarkComputeKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ComputeKey("GET", "https://Example.com/Some/Path?q=1#frag")
	}
}

func BenchmarkSnapshot(b *testing.B) {
	builder := NewBuilder(10000, nil)
	for i := 0; i < 10000; i++ {
		builder.Add(&Request{
			URL: fmt.Sprintf("https://example.com/page/%d", i),
		})
	}
	l, err := builder.Build(nil)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		l.FetchNext()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Snapshot()
	}
}
