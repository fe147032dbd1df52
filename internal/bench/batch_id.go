package bench

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const batchIDSuffixBytes = 4

// NewBatchID returns a timestamped batch id with a random suffix.
func NewBatchID() (string, error) {
	return NewBatchIDWithRand(time.Now().UTC(), rand.Reader)
}

func NewBatchIDWithRand(now time.Time, r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("random reader is nil")
	}
	buf := make([]byte, batchIDSuffixBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return FormatBatchID(now, hex.EncodeToString(buf)), nil
}

func FormatBatchID(now time.Time, suffix string) string {
	return "batch_" + now.UTC().Format("20060102150405") + "-" + suffix
}

// NewRunID returns a random UUID v4 run id.
func NewRunID() string {
	return uuid.NewString()
}
