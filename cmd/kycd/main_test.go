package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForShutdown_ServerError(t *testing.T) {
	serveErr := make(chan error, 1)
	want := errors.New("listen tcp :8000: address already in use")
	serveErr <- want

	done := make(chan error, 1)
	go func() { done <- waitForShutdown(context.Background(), serveErr) }()

	select {
	case err := <-done:
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waitForShutdown did not return on server error")
	}
}

func TestWaitForShutdown_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := waitForShutdown(ctx, make(chan error)); err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
}
