package model

import (
	"context"

	"github.com/benchkeep/benchkeep"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	// ResultsCPUMemCollection holds the flattened metric row for the
	// cpu_mem test family.
	ResultsCPUMemCollection = "results_cpu_mem"
	// ResultsNetworkCollection holds the flattened metric row for the
	// network test family.
	ResultsNetworkCollection = "results_network"
)

// ResultsCPUMem is the flattened results row for the cpu_mem test family,
// keyed by the owning test run's ID. The field set mirrors the metrics the
// cpu_mem parsers emit; acceptance criteria resolve metrics by these bson
// names, so they must stay stable.
type ResultsCPUMem struct {
	TestRunID string `bson:"_id"`

	MemoryIdleLatencyNS             *float64 `bson:"memory_idle_latency_ns,omitempty"`
	MemoryPeakInjectionBandwidthMBS *float64 `bson:"memory_peak_injection_bandwidth_mbs,omitempty"`
	RamspeedSMPBandwidthMBSAdd      *float64 `bson:"ramspeed_smp_bandwidth_mbs_add,omitempty"`
	RamspeedSMPBandwidthMBSCopy     *float64 `bson:"ramspeed_smp_bandwidth_mbs_copy,omitempty"`
	SysbenchRAMBandwidthMiBS        *float64 `bson:"sysbench_ram_memory_bandwidth_mibs,omitempty"`
	SysbenchRAMTestDurationSec      *float64 `bson:"sysbench_ram_memory_test_duration_sec,omitempty"`
	SysbenchRAMTestMode             string   `bson:"sysbench_ram_memory_test_mode,omitempty"`
	SysbenchCPUEventsPerSecond      *float64 `bson:"sysbench_cpu_events_per_second,omitempty"`
	SysbenchCPUDurationSec          *float64 `bson:"sysbench_cpu_duration_sec,omitempty"`
	SysbenchCPUTestMode             string   `bson:"sysbench_cpu_test_mode,omitempty"`
}

// ResultsNetwork is the flattened results row for the network test family,
// keyed by the owning test run's ID.
type ResultsNetwork struct {
	TestRunID string `bson:"_id"`

	LatencyAvgMS    *float64 `bson:"latency_avg_ms,omitempty"`
	LatencyP99MS    *float64 `bson:"latency_p99_ms,omitempty"`
	ThroughputMbps  *float64 `bson:"throughput_mbps,omitempty"`
	JitterMS        *float64 `bson:"jitter_ms,omitempty"`
	PacketLossRatio *float64 `bson:"packet_loss_ratio,omitempty"`
	Protocol        string   `bson:"protocol,omitempty"`
}

// SaveResultsRow writes one flattened results row keyed by the test run ID
// into the named collection. The caller's context may be a session context,
// in which case the insert participates in that transaction.
func SaveResultsRow(ctx context.Context, env benchkeep.Environment, collection string, row interface{}) error {
	if env == nil {
		return errors.New("cannot save with a nil environment")
	}
	if collection == "" {
		return errors.New("cannot save a results row without a collection")
	}

	insertResult, err := env.GetDB().Collection(collection).InsertOne(ctx, row)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   collection,
		"insertResult": insertResult,
		"op":           "save results row",
	})

	return errors.Wrapf(err, "saving results row to '%s'", collection)
}

// FindResultsRow fetches the flattened results row for a test run from the
// named collection as a generic document, for reporting and criteria
// evaluation.
func FindResultsRow(ctx context.Context, env benchkeep.Environment, collection, testRunID string) (map[string]interface{}, error) {
	if env == nil {
		return nil, errors.New("cannot find with a nil environment")
	}

	row := map[string]interface{}{}
	err := env.GetDB().Collection(collection).FindOne(ctx, bson.M{"_id": testRunID}).Decode(&row)
	if err != nil {
		return nil, errors.Wrapf(err, "finding results row for test run '%s' in '%s'", testRunID, collection)
	}

	return row, nil
}
