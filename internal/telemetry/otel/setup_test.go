package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProvidersEmptyEndpointIsNoop(t *testing.T) {
	providers, err := NewProviders(context.Background(), "  ", "companion-test", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
		t.Fatal("all providers must exist even without an endpoint")
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown: %v", err)
	}
}

func TestNewProvidersRejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		if _, err := NewProviders(context.Background(), endpoint, "companion-test", false); err == nil {
			t.Errorf("NewProviders(%q) accepted a bad endpoint", endpoint)
		}
	}
}

func TestSetGlobal(t *testing.T) {
	providers, err := NewProviders(context.Background(), "", "companion-test", false)
	if err != nil {
		t.Fatal(err)
	}
	oldTP := otel.GetTracerProvider()
	oldMP := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
	}()

	providers.SetGlobal()
	if otel.GetTracerProvider() == oldTP {
		t.Error("tracer provider was not installed")
	}
	if otel.GetMeterProvider() == oldMP {
		t.Error("meter provider was not installed")
	}
}

func TestSetGlobalNilFields(t *testing.T) {
	p := &Providers{Shutdown: func(context.Context) error { return nil }}
	p.SetGlobal()
}
