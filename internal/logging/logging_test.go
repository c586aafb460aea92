package logging_test

import (
	"bytes"
	"testing"

	"github.com/joeycumines/detsim/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf)

	logging.WithAddress(logging.WithEvent(logger.Info(), 7, "timer_fired"), "n1", "p1").Log("timer fired")

	out := buf.String()
	require.Contains(t, out, `"event_id":7`)
	require.Contains(t, out, `"kind":"timer_fired"`)
	require.Contains(t, out, `"node":"n1"`)
	require.Contains(t, out, `"address":"p1"`)
	require.Contains(t, out, `"msg":"timer fired"`)
}

func TestNop_NeverPanics(t *testing.T) {
	logger := logging.Nop()
	require.NotPanics(t, func() {
		logging.WithEvent(logger.Debug(), 1, "udp_message").Log("noop")
	})
}
