package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.RecordReceived(3)
	m.RecordDropped(DropUnknownSender)
	m.RecordSendError(SendDisabled)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["mock_link_packets_received_total"])
	assert.True(t, names["mock_link_packets_dropped_total"])
	assert.True(t, names["mock_link_send_errors_total"])
}

func TestNewUnregistered(t *testing.T) {
	// Two instances must not collide.
	a, b := New(nil), New(nil)

	a.RecordDelivered()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.PacketsDelivered))
	assert.Zero(t, testutil.ToFloat64(b.PacketsDelivered))
}

func TestRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordReceived(10)
	m.RecordReceived(5)
	m.RecordDelivered()
	m.RecordDropped(DropDisabled)
	m.RecordDropped(DropDisabled)
	m.RecordDropped(DropUnknownSender)
	m.RecordReceiveError()
	m.RecordHandlerPanic()
	m.RecordSent(7)
	m.RecordSendError(SendTransport)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.PacketsReceived))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.BytesReceived))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PacketsDelivered))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PacketsDropped.WithLabelValues(DropDisabled)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PacketsDropped.WithLabelValues(DropUnknownSender)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReceiveErrors))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HandlerPanics))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PacketsSent))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.BytesSent))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SendErrors.WithLabelValues(SendTransport)))
	assert.Zero(t, testutil.ToFloat64(m.SendErrors.WithLabelValues(SendDisabled)))
}
