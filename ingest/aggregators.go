package ingest

import (
	"encoding/json"
	"strings"

	"github.com/benchkeep/benchkeep/model"
	"github.com/benchkeep/benchkeep/parser"
	"go.mongodb.org/mongo-driver/bson"
)

// cpuMemAggregator flattens cpu_mem records into the results_cpu_mem column
// set. Fields outside the memory_/ramspeed_/sysbench_ families are dropped;
// later records overwrite earlier ones per field.
type cpuMemAggregator struct{}

// NewCPUMemAggregator returns the aggregator for the cpu_mem test family.
func NewCPUMemAggregator() Aggregator { return cpuMemAggregator{} }

func (cpuMemAggregator) Collection() string { return model.ResultsCPUMemCollection }

func (cpuMemAggregator) Aggregate(testRunID string, records []parser.Record) (interface{}, error) {
	flat := flattenByPrefix(records, "memory_", "ramspeed_", "sysbench_")

	return &model.ResultsCPUMem{
		TestRunID:                       testRunID,
		MemoryIdleLatencyNS:             numField(flat, "memory_idle_latency_ns"),
		MemoryPeakInjectionBandwidthMBS: numField(flat, "memory_peak_injection_bandwidth_mbs"),
		RamspeedSMPBandwidthMBSAdd:      numField(flat, "ramspeed_smp_bandwidth_mbs_add"),
		RamspeedSMPBandwidthMBSCopy:     numField(flat, "ramspeed_smp_bandwidth_mbs_copy"),
		SysbenchRAMBandwidthMiBS:        numField(flat, "sysbench_ram_memory_bandwidth_mibs"),
		SysbenchRAMTestDurationSec:      numField(flat, "sysbench_ram_memory_test_duration_sec"),
		SysbenchRAMTestMode:             strField(flat, "sysbench_ram_memory_test_mode"),
		SysbenchCPUEventsPerSecond:      numField(flat, "sysbench_cpu_events_per_second"),
		SysbenchCPUDurationSec:          numField(flat, "sysbench_cpu_duration_sec"),
		SysbenchCPUTestMode:             strField(flat, "sysbench_cpu_test_mode"),
	}, nil
}

// networkAggregator flattens network records into the results_network
// column set.
type networkAggregator struct{}

// NewNetworkAggregator returns the aggregator for the network test family.
func NewNetworkAggregator() Aggregator { return networkAggregator{} }

func (networkAggregator) Collection() string { return model.ResultsNetworkCollection }

func (networkAggregator) Aggregate(testRunID string, records []parser.Record) (interface{}, error) {
	flat := flattenByPrefix(records, "latency_", "throughput_", "jitter_", "packet_", "protocol")

	return &model.ResultsNetwork{
		TestRunID:       testRunID,
		LatencyAvgMS:    numField(flat, "latency_avg_ms"),
		LatencyP99MS:    numField(flat, "latency_p99_ms"),
		ThroughputMbps:  numField(flat, "throughput_mbps"),
		JitterMS:        numField(flat, "jitter_ms"),
		PacketLossRatio: numField(flat, "packet_loss_ratio"),
		Protocol:        strField(flat, "protocol"),
	}, nil
}

// lastWriteWinsAggregator is the default aggregation for test types that
// have a results collection but no custom combination logic: declared
// fields pass through, later records win, everything else is dropped.
type lastWriteWinsAggregator struct {
	collection string
	fields     []string
}

// NewLastWriteWinsAggregator returns an aggregator writing the named fields
// into the given collection with last-write-wins semantics.
func NewLastWriteWinsAggregator(collection string, fields []string) Aggregator {
	return &lastWriteWinsAggregator{collection: collection, fields: append([]string{}, fields...)}
}

func (a *lastWriteWinsAggregator) Collection() string { return a.collection }

func (a *lastWriteWinsAggregator) Aggregate(testRunID string, records []parser.Record) (interface{}, error) {
	row := bson.M{"_id": testRunID}

	for _, record := range records {
		for _, field := range a.fields {
			raw, ok := record[field]
			if !ok {
				continue
			}
			if value, ok := scalarValue(raw); ok {
				row[field] = value
			}
		}
	}

	return row, nil
}

// flattenByPrefix applies last-write-wins across records for scalar fields
// matching any of the prefixes.
func flattenByPrefix(records []parser.Record, prefixes ...string) map[string]interface{} {
	flat := map[string]interface{}{}

	for _, record := range records {
		for key, raw := range record {
			if !matchesPrefix(key, prefixes) {
				continue
			}
			if value, ok := scalarValue(raw); ok {
				flat[key] = value
			}
		}
	}

	return flat
}

func matchesPrefix(key string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// scalarValue normalizes a record value to a storable scalar: numbers
// become float64, strings pass through, everything else is dropped.
func scalarValue(raw interface{}) (interface{}, bool) {
	switch value := raw.(type) {
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		return value, true
	default:
		return nil, false
	}
}

func numField(flat map[string]interface{}, key string) *float64 {
	raw, ok := flat[key]
	if !ok {
		return nil
	}
	f, ok := raw.(float64)
	if !ok {
		return nil
	}
	return &f
}

func strField(flat map[string]interface{}, key string) string {
	raw, ok := flat[key]
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}
