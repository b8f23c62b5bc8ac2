package measure

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Probe outcome statuses.
const (
	StatusOK          = "ok"
	StatusParseFailed = "parse-failed"
	StatusNoOutput    = "no-output"
)

// Run-level statuses beyond a completed measurement.
const (
	RunOK          = "ok"
	RunSkipped     = "skipped"
	RunUnreachable = "unreachable"
)

// probeFields is the arity of the probe tool's CSV record:
// timestamp, source addr/port, dest addr/port, id, interval, bytes, bits/s.
const probeFields = 9

// ProbeResult is one pair's outcome. Mbps is only meaningful for StatusOK.
type ProbeResult struct {
	Label  string  `yaml:"label" json:"label"`
	Mbps   float64 `yaml:"mbps" json:"mbps"`
	Status string  `yaml:"status" json:"status"`
	Raw    string  `yaml:"raw,omitempty" json:"raw,omitempty"`
}

// Report aggregates a full measurement pass.
type Report struct {
	RunID     string        `yaml:"runId" json:"runId"`
	Label     string        `yaml:"label" json:"label"`
	Status    string        `yaml:"status" json:"status"`
	TotalMbps float64       `yaml:"totalMbps" json:"totalMbps"`
	MeanMbps  float64       `yaml:"meanMbps" json:"meanMbps"`
	StdevMbps float64       `yaml:"stdevMbps" json:"stdevMbps"`
	OK        int           `yaml:"ok" json:"ok"`
	Failed    int           `yaml:"failed" json:"failed"`
	Pairs     []ProbeResult `yaml:"pairs" json:"pairs"`
	Env       *EnvInfo      `yaml:"env,omitempty" json:"env,omitempty"`
}

// ParseProbe extracts the transferred-bandwidth field from one probe's raw
// output. The probe reports a fixed-arity comma-separated record whose 9th
// field is bits/second over the test interval; the value is converted to
// Mbit/s. Anything that is not such a record degrades to a failure status on
// this pair alone, never an error.
func ParseProbe(label, raw string) ProbeResult {
	line := lastLine(raw)
	fields := strings.Split(line, ",")
	if len(fields) != probeFields {
		return ProbeResult{Label: label, Status: StatusNoOutput, Raw: raw}
	}

	bits, err := strconv.ParseFloat(strings.TrimSpace(fields[probeFields-1]), 64)
	if err != nil {
		return ProbeResult{Label: label, Status: StatusParseFailed, Raw: raw}
	}
	return ProbeResult{Label: label, Mbps: bits / 1e6, Status: StatusOK, Raw: raw}
}

// lastLine returns the trailing non-empty line of out. The probe may emit
// incidental notices before its summary record; the record comes last.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// Aggregate sums the successfully parsed pair throughputs and counts the
// rest. Failed pairs stay in the report but contribute nothing to the total.
func Aggregate(results []ProbeResult) *Report {
	rep := &Report{Status: RunOK, Pairs: results}

	var ok []float64
	for _, r := range results {
		if r.Status == StatusOK {
			rep.TotalMbps += r.Mbps
			ok = append(ok, r.Mbps)
		} else {
			rep.Failed++
		}
	}
	rep.OK = len(ok)
	if len(ok) > 0 {
		rep.MeanMbps = stat.Mean(ok, nil)
	}
	if len(ok) > 1 {
		rep.StdevMbps = stat.StdDev(ok, nil)
	}
	return rep
}

// WriteToFile stores the report under the given name, serialized to yaml or
// json depending on the name's extension.
func (r *Report) WriteToFile(filename string) error {
	var bytes []byte
	var err error

	switch path.Ext(filename) {
	case ".yaml", ".yml":
		bytes, err = yaml.Marshal(r)
	case ".json":
		bytes, err = json.MarshalIndent(r, "", "\t")
	default:
		return fmt.Errorf("unsupported report file extension: %s", filename)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	return os.WriteFile(filename, bytes, 0644)
}
