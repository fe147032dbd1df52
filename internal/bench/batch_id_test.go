package bench

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestFormatBatchID verifies batch ID formatting.
func TestFormatBatchID(t *testing.T) {
	timestamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := FormatBatchID(timestamp, "deadbeef")
	if got != "batch_20240102030405-deadbeef" {
		t.Fatalf("unexpected batch id: %q", got)
	}
}

// TestNewBatchIDWithRand verifies deterministic batch ID generation with a reader.
func TestNewBatchIDWithRand(t *testing.T) {
	timestamp := time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC)
	reader := bytes.NewReader([]byte{0x00, 0x11, 0x22, 0x33})
	got, err := NewBatchIDWithRand(timestamp, reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "batch_20240607080910-00112233" {
		t.Fatalf("unexpected batch id: %q", got)
	}
}

func TestNewBatchIDWithRandShortReader(t *testing.T) {
	if _, err := NewBatchIDWithRand(time.Now(), bytes.NewReader([]byte{0x01})); err == nil {
		t.Fatalf("expected short read error")
	}
	if _, err := NewBatchIDWithRand(time.Now(), nil); err == nil {
		t.Fatalf("expected nil reader error")
	}
}

func TestNewRunIDIsUUIDv4(t *testing.T) {
	id, err := uuid.Parse(NewRunID())
	if err != nil {
		t.Fatalf("parse run id: %v", err)
	}
	if id.Version() != 4 {
		t.Fatalf("expected v4 uuid, got %d", id.Version())
	}
}
