package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatloop/chatloop/pkg/adapters/memory"
	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/ports"
	"github.com/chatloop/chatloop/pkg/registry"
)

type nopSink struct{}

func (nopSink) Send(ctx context.Context, chatID, text string, options map[string]any) error {
	return nil
}

func TestMetrics_CountsOutcomes(t *testing.T) {
	reg := registry.New()
	reg.Register("start", func(ctx context.Context, chatID, input string, convCtx domain.Context, sink ports.MessageSink) (string, domain.Context, error) {
		return "start", nil, nil
	})

	m := NewMetrics(prometheus.NewRegistry())
	orch := New(memory.NewStore(), nopSink{}, WithRegistry(reg), WithMetrics(m))

	ctx := context.Background()
	require.NoError(t, orch.HandleMessage(ctx, "c", "one"))
	require.NoError(t, orch.HandleMessage(ctx, "c", "two"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.handled.WithLabelValues(resultOK)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.handled.WithLabelValues(resultUnknownState)))
}

func TestMetrics_UnknownState(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	orch := New(memory.NewStore(), nopSink{}, WithMetrics(m))

	require.Error(t, orch.HandleMessage(context.Background(), "c", "hello"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.handled.WithLabelValues(resultUnknownState)))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observe(resultOK, time.Millisecond)
}
