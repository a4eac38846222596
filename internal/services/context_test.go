package services_test

import (
	"context"
	"testing"

	"rigdna/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRig(ctx, "hero_face")
	ctx = services.WithOperation(ctx, "calibrate")
	ctx = services.WithRequestID(ctx, "req-123")

	if rig, ok := services.RigFromContext(ctx); !ok || rig != "hero_face" {
		t.Fatalf("unexpected rig: %v %v", rig, ok)
	}
	if op, ok := services.OperationFromContext(ctx); !ok || op != "calibrate" {
		t.Fatalf("unexpected operation: %v %v", op, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestOperationBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOperation(ctx, "")
	if _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("expected no operation value")
	}
}
