package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/infra/logger"
)

// InfluxSink writes refresh history to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordRefresh writes one refresh_cycle point.
func (s *InfluxSink) RecordRefresh(ev coremetrics.RefreshEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("refresh_cycle").
		AddTag("account", ev.AccountID).
		AddTag("result", result(ev.Err)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("planned", ev.Planned).
		AddField("completed", ev.Completed).
		SetTime(ev.Time)
	if ev.Err != nil {
		p.AddField("error", ev.Err.Error())
	} else {
		p.AddField("generation", int64(ev.Generation))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordChargeState writes one charge_state point.
func (s *InfluxSink) RecordChargeState(ev coremetrics.ChargeStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("charge_state").
		AddTag("account", ev.AccountID).
		AddField("off_peak", ev.OffPeak).
		AddField("fixed_off_peak", ev.FixedOffPeak).
		AddField("smart_charge", ev.SmartChargeNow).
		AddField("boost_charge", ev.BoostChargeNow).
		AddField("smart_enabled", ev.SmartEnabled).
		AddField("target_soc", ev.TargetSoC).
		AddField("completed_energy_kwh", round3(ev.CompletedEnergy.InexactFloat64())).
		AddField("planned", ev.PlannedDispatches).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordMutation writes one mutation point.
func (s *InfluxSink) RecordMutation(ev coremetrics.MutationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("mutation").
		AddTag("account", ev.AccountID).
		AddTag("operation", ev.Operation).
		AddTag("result", result(ev.Err)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
