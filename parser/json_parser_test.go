package parser

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUMemParser(t *testing.T) {
	p := NewCPUMemParser()

	t.Run("TestType", func(t *testing.T) {
		assert.Equal(t, "cpu_mem", p.TestType())
	})
	t.Run("SupportedExtensions", func(t *testing.T) {
		assert.Equal(t, []string{".json"}, p.SupportedExtensions())
		assert.True(t, p.IsValidFile("run.json"))
		assert.True(t, p.IsValidFile("RUN.JSON"))
		assert.False(t, p.IsValidFile("run.csv"))
		assert.False(t, p.IsValidFile("run"))
	})
	t.Run("ParsesObject", func(t *testing.T) {
		record, err := p.ParseFile([]byte(`{"sysbench_cpu_events_per_second": 10741.25, "timestamp": "2026-08-01T10:00:00"}`), "run.json")
		require.NoError(t, err)
		assert.Equal(t, json.Number("10741.25"), record["sysbench_cpu_events_per_second"])
		assert.Equal(t, "2026-08-01T10:00:00", record["timestamp"])
	})
	t.Run("StampsMissingTimestamp", func(t *testing.T) {
		record, err := p.ParseFile([]byte(`{"memory_idle_latency_ns": 92}`), "run.json")
		require.NoError(t, err)
		assert.NotEmpty(t, record["timestamp"])
	})
	t.Run("RejectsNonObject", func(t *testing.T) {
		_, err := p.ParseFile([]byte(`[1,2,3]`), "run.json")
		assert.Error(t, err)
	})
	t.Run("RejectsRecordWithoutMetrics", func(t *testing.T) {
		_, err := p.ParseFile([]byte(`{"test_name": "warmup", "timestamp": "2026-08-01T10:00:00"}`), "run.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no cpu or memory metrics")
	})
	t.Run("AcceptsMemoryOnlyRecord", func(t *testing.T) {
		_, err := p.ParseFile([]byte(`{"sysbench_ram_memory_bandwidth_mibs": 20141.8}`), "run.json")
		assert.NoError(t, err)
	})
	t.Run("RejectsInvalidJSON", func(t *testing.T) {
		_, err := p.ParseFile([]byte(`{"broken":`), "run.json")
		assert.Error(t, err)
	})
}

func TestCPULatencyParser(t *testing.T) {
	p := NewCPULatencyParser()

	t.Run("ComputesAverageFromSamples", func(t *testing.T) {
		record, err := p.ParseFile([]byte(`{"test_name": "ping", "latencies_ns": [100, 200, 300]}`), "run.json")
		require.NoError(t, err)
		assert.Equal(t, float64(200), record["average_ns"])
	})
	t.Run("KeepsExplicitAverage", func(t *testing.T) {
		record, err := p.ParseFile([]byte(`{"test_name": "ping", "latencies_ns": [100, 200, 300], "average_ns": 999}`), "run.json")
		require.NoError(t, err)
		assert.Equal(t, json.Number("999"), record["average_ns"])
	})
	t.Run("NoSamplesFailsRequiredFields", func(t *testing.T) {
		_, err := p.ParseFile([]byte(`{"test_name": "ping", "latencies_ns": []}`), "run.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "average_ns")
	})
	t.Run("MissingTestNameRejected", func(t *testing.T) {
		_, err := p.ParseFile([]byte(`{"latencies_ns": [100], "average_ns": 100}`), "run.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "test_name")
	})
}

func TestParsePackage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewCPUMemParser()

	t.Run("ParsesEveryValidFile", func(t *testing.T) {
		pkg := MapPackage{
			"a.json": []byte(`{"sysbench_cpu_duration_sec": 10}`),
			"b.json": []byte(`{"sysbench_cpu_duration_sec": 20}`),
		}
		records, err := p.ParsePackage(ctx, pkg)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
	t.Run("SkipsUnsupportedExtensions", func(t *testing.T) {
		pkg := MapPackage{
			"a.json":     []byte(`{"sysbench_cpu_duration_sec": 10}`),
			"notes.txt":  []byte("free text"),
			"other.csv":  []byte("x,y\n1,2"),
			"readme.md~": []byte("backup"),
		}
		records, err := p.ParsePackage(ctx, pkg)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
	t.Run("FirstInvalidFileFailsWholePackage", func(t *testing.T) {
		pkg := MapPackage{
			"a.json": []byte(`{"sysbench_cpu_duration_sec": 10}`),
			"b.json": []byte(`not json`),
		}
		_, err := p.ParsePackage(ctx, pkg)
		require.Error(t, err)

		parseErr := &ParseError{}
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "b.json", parseErr.File)
	})
	t.Run("EmptyPackageYieldsNoRecords", func(t *testing.T) {
		records, err := p.ParsePackage(ctx, MapPackage{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})
	t.Run("CanceledContextErrors", func(t *testing.T) {
		canceled, cancelNow := context.WithCancel(context.Background())
		cancelNow()

		_, err := p.ParsePackage(canceled, MapPackage{"a.json": []byte(`{"sysbench_cpu_duration_sec": 10}`)})
		assert.Error(t, err)
	})
}
