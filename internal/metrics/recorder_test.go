package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder_ImplementsRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("scan", time.Second)
	r.ObserveRunDuration(time.Second)
	r.IncStageResult("scan", ResultSuccess)
	r.IncRunOutcome("success")
	r.IncPageResult(ResultWarning)
	r.SetRenderConcurrency(4)
}

func TestPrometheusRecorder_RegistersAndRecords(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveStageDuration("scan", 100*time.Millisecond)
	r.ObserveRunDuration(time.Second)
	r.IncStageResult("render", ResultSuccess)
	r.IncRunOutcome("success")
	r.IncPageResult(ResultSuccess)
	r.SetRenderConcurrency(8)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["novelpress_stage_duration_seconds"])
	require.True(t, names["novelpress_run_duration_seconds"])
	require.True(t, names["novelpress_stage_results_total"])
	require.True(t, names["novelpress_run_outcomes_total"])
	require.True(t, names["novelpress_page_results_total"])
	require.True(t, names["novelpress_render_concurrency"])
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObserveStageDuration("scan", time.Second)
	r.IncRunOutcome("failed")
	r.SetRenderConcurrency(1)
}
