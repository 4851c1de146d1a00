package otelsetup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		p, err := NewProviders(ctx, endpoint, "test-service", false)
		require.NoError(t, err)
		assert.NotNil(t, p.TracerProvider)
		assert.NotNil(t, p.LoggerProvider)
		assert.NoError(t, p.Shutdown(ctx))
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"http://", "http://[invalid"} {
		_, err := NewProviders(ctx, endpoint, "test-service", false)
		assert.Error(t, err, "endpoint %q", endpoint)
	}
}

func TestNewProviders_WithEndpoint(t *testing.T) {
	ctx := context.Background()
	p, err := NewProviders(ctx, "localhost:4317", "test-service", true)
	require.NoError(t, err)
	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.LoggerProvider)

	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = p.Shutdown(sctx)
}

func TestGRPCTarget(t *testing.T) {
	tests := []struct {
		in      string
		target  string
		wantTLS bool
	}{
		{"localhost:4317", "localhost:4317", false},
		{"http://collector:4317/v1/traces", "collector:4317", false},
		{"https://collector.example.com:4317", "collector.example.com:4317", true},
	}
	for _, tt := range tests {
		target, tls, err := grpcTarget(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.target, target)
		assert.Equal(t, tt.wantTLS, tls)
	}
}

func TestSetGlobal(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevLP := global.GetLoggerProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		global.SetLoggerProvider(prevLP)
	})

	p, err := NewProviders(context.Background(), "", "test-service", false)
	require.NoError(t, err)
	p.SetGlobal()

	assert.Same(t, p.TracerProvider, otel.GetTracerProvider())
	assert.Same(t, p.LoggerProvider, global.GetLoggerProvider())
}
