// Package telemetry mirrors tick metrics to InfluxDB on a best-effort
// basis, independent of the mandatory CSV/.time files. Generalized from a
// per-benchmark-run write to a per-tick write gated on environment
// variables instead of a required config file.
package telemetry

import (
	"context"
	"os"
	"time"

	"bigsched/internal/logging"
	"bigsched/internal/policy"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Sink is the interface the control loop forwards tick metrics to.
type Sink interface {
	WriteTick(metrics policy.TickMetrics, committed policy.ClusterState) error
	Close() error
}

// NoopSink is installed when no InfluxDB environment variables are
// present; it makes zero network calls.
type NoopSink struct{}

func (NoopSink) WriteTick(policy.TickMetrics, policy.ClusterState) error { return nil }
func (NoopSink) Close() error                                           { return nil }

// InfluxSink writes one point per tick using the blocking write API for
// backpressure simplicity.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

// influxEnv holds the four environment variables that gate the sink.
type influxEnv struct {
	host, token, org, bucket string
}

// resolveInfluxEnv reads the four required variables; ok is false if any
// is missing, in which case the caller must fall back to NoopSink.
func resolveInfluxEnv() (influxEnv, bool) {
	env := influxEnv{
		host:   os.Getenv("INFLUXDB_HOST"),
		token:  os.Getenv("INFLUXDB_TOKEN"),
		org:    os.Getenv("INFLUXDB_ORG"),
		bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
	if env.host == "" || env.token == "" || env.org == "" || env.bucket == "" {
		return influxEnv{}, false
	}
	return env, true
}

// NewSink resolves the InfluxDB environment and returns either an active
// InfluxSink or a NoopSink. This never fails: if any of the four variables
// is missing it degrades to the no-op sink. The values themselves are not
// validated here.
func NewSink() Sink {
	env, ok := resolveInfluxEnv()
	if !ok {
		logging.GetLogger().Debug("InfluxDB environment not configured, telemetry mirror disabled")
		return NoopSink{}
	}

	client := influxdb2.NewClient(env.host, env.token)
	writer := client.WriteAPIBlocking(env.org, env.bucket)
	logging.GetLogger().WithField("bucket", env.bucket).Info("Telemetry mirror enabled")
	return &InfluxSink{client: client, writer: writer}
}

// WriteTick writes one point carrying the tick's metrics and the committed
// cluster state as a tag. Errors are logged at warn and also returned, so
// the control loop can log them with tick-level context; the loop does not
// change the tick's outcome because of them.
func (s *InfluxSink) WriteTick(metrics policy.TickMetrics, committed policy.ClusterState) error {
	point := influxdb2.NewPoint(
		"scheduler_tick",
		map[string]string{"cluster_state": committed.String()},
		map[string]interface{}{
			"elapsed_ms":          metrics.ElapsedMS,
			"cycles":              metrics.Cycles,
			"instructions":        metrics.Instructions,
			"cache_misses":        metrics.CacheMisses,
			"branch_instructions": metrics.BranchInstructions,
			"branch_misses":       metrics.BranchMisses,
		},
		time.Now(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.writer.WritePoint(ctx, point); err != nil {
		logging.GetLogger().WithError(err).Warn("Telemetry sink write failed, continuing")
		return err
	}
	return nil
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
