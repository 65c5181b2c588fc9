package api

import (
	"testing"
	"time"
)

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	s := NewLimiterStore(60, 3, time.Minute)
	defer s.Stop()

	for i := 0; i < 3; i++ {
		if !s.Allow("user-a") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if s.Allow("user-a") {
		t.Fatal("request beyond burst should be blocked")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	s := NewLimiterStore(60, 1, time.Minute)
	defer s.Stop()

	if !s.Allow("user-a") {
		t.Fatal("first request for user-a should be allowed")
	}
	if s.Allow("user-a") {
		t.Fatal("second request for user-a should be blocked")
	}
	if !s.Allow("user-b") {
		t.Fatal("user-b has their own limiter")
	}
}
