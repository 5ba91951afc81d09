package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8083")
	if p, err := Port("TEST_PORT", "1"); err != nil || p != "8083" {
		t.Fatalf("expected 8083, got %q (%v)", p, err)
	}
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "1"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestIntAndDuration(t *testing.T) {
	if n, err := Int("TEST_UNSET_INT", 7); err != nil || n != 7 {
		t.Fatalf("expected fallback 7, got %d (%v)", n, err)
	}
	t.Setenv("TEST_INT", "nope")
	if _, err := Int("TEST_INT", 1); err == nil {
		t.Fatal("expected error for non-integer")
	}
	t.Setenv("TEST_DURATION", "90s")
	d, err := Duration("TEST_DURATION", time.Second)
	if err != nil || d != 90*time.Second {
		t.Fatalf("expected 90s, got %s (%v)", d, err)
	}
}

func TestList(t *testing.T) {
	t.Setenv("TEST_LIST", " a, ,b ,c")
	got := List("TEST_LIST", "")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected list: %v", got)
	}
	if got := Bool("TEST_UNSET_BOOL", true); !got {
		t.Fatal("expected fallback true")
	}
}
