package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/benchkeep/benchkeep"
	"github.com/pkg/errors"
)

// fileParser implements the shared ParsePackage walk for the concrete
// parsers; each supplies its test type, extension filter, and per-file
// parse function.
type fileParser struct {
	testType   string
	extensions []string
	parse      func(data []byte, name string) (Record, error)
}

func (p *fileParser) TestType() string              { return p.testType }
func (p *fileParser) SupportedExtensions() []string { return append([]string{}, p.extensions...) }

func (p *fileParser) IsValidFile(name string) bool {
	return hasExtension(name, p.extensions)
}

func (p *fileParser) ParseFile(data []byte, name string) (Record, error) {
	return p.parse(data, name)
}

func (p *fileParser) ParsePackage(ctx context.Context, pkg Package) ([]Record, error) {
	files, err := pkg.Files(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading package contents")
	}

	records := []Record{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		if !p.IsValidFile(f.Name) {
			continue
		}

		record, err := p.parse(f.Data, f.Name)
		if err != nil {
			return nil, &ParseError{File: f.Name, Err: err}
		}
		records = append(records, record)
	}

	return records, nil
}

// parseJSONObject decodes a JSON file into a Record, requiring a top-level
// object and preserving numeric literals.
func parseJSONObject(data []byte) (Record, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "invalid JSON")
	}

	record, ok := doc.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("JSON file must contain an object, got %T", doc)
	}

	return Record(record), nil
}

// cpuMetricFields and memoryMetricFields are the recognized cpu_mem
// measurements; a file has to carry at least one of them to be a result.
var (
	cpuMetricFields = []string{
		"sysbench_cpu_events_per_second",
		"sysbench_cpu_duration_sec",
	}
	memoryMetricFields = []string{
		"memory_idle_latency_ns",
		"memory_peak_injection_bandwidth_mbs",
		"sysbench_ram_memory_bandwidth_mibs",
	}
)

// NewCPUMemParser returns the parser for the cpu_mem test family: JSON
// files of sysbench CPU and memory metrics.
func NewCPUMemParser() Parser {
	p := &fileParser{
		testType:   "cpu_mem",
		extensions: []string{".json"},
	}
	p.parse = func(data []byte, _ string) (Record, error) {
		record, err := parseJSONObject(data)
		if err != nil {
			return nil, err
		}
		if !hasAnyField(record, cpuMetricFields) && !hasAnyField(record, memoryMetricFields) {
			return nil, errors.New("result contains no cpu or memory metrics")
		}
		stampTimestamp(record)
		return record, nil
	}
	return p
}

// NewCPULatencyParser returns the parser for the cpu_latency test family:
// JSON files of latency samples. A missing average_ns is computed from the
// latencies_ns list when one is present.
func NewCPULatencyParser() Parser {
	p := &fileParser{
		testType:   "cpu_latency",
		extensions: []string{".json"},
	}
	p.parse = func(data []byte, _ string) (Record, error) {
		record, err := parseJSONObject(data)
		if err != nil {
			return nil, err
		}
		stampTimestamp(record)

		if _, ok := record["average_ns"]; !ok {
			if avg, ok := averageOfList(record["latencies_ns"]); ok {
				record["average_ns"] = avg
			}
		}
		if missing := missingFields(record, []string{"test_name", "latencies_ns", "average_ns"}); len(missing) > 0 {
			return nil, errors.Errorf("result is missing required fields %v", missing)
		}

		return record, nil
	}
	return p
}

func hasAnyField(record Record, fields []string) bool {
	for _, f := range fields {
		if _, ok := record[f]; ok {
			return true
		}
	}
	return false
}

func missingFields(record Record, required []string) []string {
	missing := []string{}
	for _, f := range required {
		if _, ok := record[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func stampTimestamp(record Record) {
	if _, ok := record["timestamp"]; !ok {
		record["timestamp"] = time.Now().Format(benchkeep.AuxDateFormat)
	}
}

func averageOfList(v interface{}) (float64, bool) {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return 0, false
	}

	sum := 0.0
	for _, elem := range list {
		num, ok := elem.(json.Number)
		if !ok {
			return 0, false
		}
		f, err := num.Float64()
		if err != nil {
			return 0, false
		}
		sum += f
	}

	return sum / float64(len(list)), true
}
