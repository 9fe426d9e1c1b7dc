//go:build !integration

package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"cardkey-service/internal/config"
)

func TestSetup(t *testing.T) {
	t.Run("should leave the global provider alone when disabled", func(t *testing.T) {
		before := otel.GetTracerProvider()
		shutdown, err := Setup(config.TracingConfig{}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
		assert.Equal(t, before, otel.GetTracerProvider())
	})

	t.Run("should export spans to the writer on shutdown", func(t *testing.T) {
		defer otel.SetTracerProvider(noop.NewTracerProvider())

		var buf bytes.Buffer
		shutdown, err := Setup(config.TracingConfig{Enabled: true, ServiceName: "cardkey-test"}, &buf)
		require.NoError(t, err)

		_, span := otel.Tracer("test").Start(context.Background(), "unit-span")
		span.End()

		require.NoError(t, shutdown(context.Background()))
		assert.Contains(t, buf.String(), "unit-span")
		assert.Contains(t, buf.String(), "cardkey-test")
	})
}
