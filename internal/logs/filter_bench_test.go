package logs

import (
	"fmt"
	"testing"
)

func benchRecords(n int) []Record {
	labels := []string{"build", "test", "deploy", ""}
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Sequence: i,
			Label:    labels[i%len(labels)],
			Content:  fmt.Sprintf("2024-01-01T00:00:%02dZ step %d finished with status ok", i%60, i),
		}
	}
	return records
}

func BenchmarkRecompute(b *testing.B) {
	records := benchRecords(10000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		Recompute(records, "Status OK", "test")
	}
}

func BenchmarkDistinctLabels(b *testing.B) {
	records := benchRecords(10000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		DistinctLabels(records)
	}
}

func BenchmarkIndex_ConcurrentAccess(b *testing.B) {
	ix := NewIndex()
	ix.SetRecords(benchRecords(2000))

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				ix.SetSearch("step")
			} else {
				_ = ix.View()
			}
			i++
		}
	})
}
