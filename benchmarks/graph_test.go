package benchmarks

import (
	"testing"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
)

// BenchmarkHydrate_10 measures payload validation and indexing for a small graph.
func BenchmarkHydrate_10(b *testing.B) {
	benchmarkHydrate(b, buildLinearGraph(10).Payload())
}

// BenchmarkHydrate_100 measures hydration of a 100-node graph.
func BenchmarkHydrate_100(b *testing.B) {
	benchmarkHydrate(b, buildLinearGraph(100).Payload())
}

// BenchmarkDecodeHydrate_100 includes JSON decoding.
func BenchmarkDecodeHydrate_100(b *testing.B) {
	data, err := flowchart.EncodePayload(buildLinearGraph(100).Payload())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := flowchart.DecodePayload(data)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := flowchart.Hydrate(p, flowchart.WithLintLogger(nil)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLint_100 measures lint over a valid graph.
func BenchmarkLint_100(b *testing.B) {
	g := mustBuild(buildLinearGraph(100))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Lint()
	}
}

// BenchmarkInsertNodeOnEdge measures a splice on a cloned 100-node graph.
func BenchmarkInsertNodeOnEdge(b *testing.B) {
	g := mustBuild(buildLinearGraph(100))
	node := flowchart.Node{ID: "extra", Type: flowchart.NodeOutput, Data: map[string]any{"message": "x"}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := g.Clone()
		if _, err := c.InsertNodeOnEdge("en49-n50", node); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDehydrate_100 measures conversion back to the wire form.
func BenchmarkDehydrate_100(b *testing.B) {
	g := mustBuild(buildLinearGraph(100))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = flowchart.Dehydrate(g)
	}
}

func benchmarkHydrate(b *testing.B, p flowchart.Payload) {
	b.Helper()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := flowchart.Hydrate(p, flowchart.WithLintLogger(nil)); err != nil {
			b.Fatal(err)
		}
	}
}
