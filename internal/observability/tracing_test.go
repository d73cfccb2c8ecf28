package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTracing_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing("modelchat-test", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "send_message")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "send_message")
	assert.Contains(t, buf.String(), "modelchat-test")
}
