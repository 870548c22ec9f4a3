package app

import (
	"context"
	"testing"

	"github.com/lanternai/lantern/internal/config"
	"github.com/lanternai/lantern/internal/testutil"
)

func TestSetupRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"nil", nil},
		{"empty", &config.Config{}},
		{"bad provider", &config.Config{Provider: "cloudbrain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Setup(context.Background(), tt.cfg); err == nil {
				t.Error("Setup accepted an invalid config")
			}
		})
	}
}

func TestCloseOnPartialApp(t *testing.T) {
	a := &App{Logger: testutil.DiscardLogger()}
	if err := a.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestTracingDisabledWithoutEndpoint(t *testing.T) {
	cleanup := provideTracing(context.Background(), &config.Config{}, testutil.DiscardLogger())
	if cleanup == nil {
		t.Fatal("cleanup func is nil")
	}
	cleanup()
}

func TestDBPoolFailsFastOnBadHost(t *testing.T) {
	cfg := &config.Config{
		PostgresHost:    "127.0.0.1",
		PostgresPort:    1, // nothing listens here
		PostgresUser:    "nobody",
		PostgresDBName:  "nope",
		PostgresSSLMode: "disable",
	}

	if _, err := provideDBPool(context.Background(), cfg); err == nil {
		t.Error("provideDBPool succeeded against a dead host")
	}
}
