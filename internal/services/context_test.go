package services_test

import (
	"context"
	"testing"

	"librarian/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithJobID(ctx, "job-2")
	ctx = services.WithPhase(ctx, "queue")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-2" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if phase, ok := services.PhaseFromContext(ctx); !ok || phase != "queue" {
		t.Fatalf("unexpected phase: %v %v", phase, ok)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := services.WithPhase(context.Background(), "")
	if _, ok := services.PhaseFromContext(ctx); ok {
		t.Fatal("expected empty phase to be ignored")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
}
