package adapters_test

import (
	"context"
	"testing"

	"github.com/robertarktes/busops/internal/adapters"
	"github.com/robertarktes/busops/internal/config"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
)

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	b, err := adapters.Open(ctx, &config.Config{StoreBackend: config.BackendMemory}, observability.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if b.Source != nil {
		t.Error("expected no outbox source for the memory backend")
	}
	if err := b.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Sink.Emit(ctx, domain.NewEvent(domain.EventPayrollDue, "employee", "e1", nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Store.Create(ctx, domain.CollectionBuses, domain.Bus{Name: "Coach"}); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := adapters.Open(context.Background(), &config.Config{StoreBackend: "sqlite"}, observability.NewDiscardLogger()); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
