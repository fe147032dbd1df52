package cli

import (
	"io"
	"strings"
	"testing"
)

func TestResolveUIModeForBatch(t *testing.T) {
	cases := []struct {
		name     string
		mode     string
		verbose  bool
		isTTY    bool
		term     string
		wantLive bool
		wantWarn string
		wantErr  bool
	}{
		{name: "empty means auto", mode: "", isTTY: true, wantLive: true},
		{name: "auto tty", mode: "auto", isTTY: true, wantLive: true},
		{name: "auto redirected", mode: "auto", isTTY: false},
		{name: "auto dumb terminal", mode: "auto", isTTY: true, term: "dumb"},
		{name: "plain on tty", mode: "plain", isTTY: true},
		{name: "mixed case live", mode: " LIVE ", isTTY: true, wantLive: true},
		{name: "live redirected", mode: "live", isTTY: false, wantWarn: "needs a terminal"},
		{name: "live dumb terminal", mode: "live", isTTY: true, term: "dumb", wantWarn: "needs a terminal"},
		{name: "verbose wins over auto", mode: "auto", verbose: true, isTTY: true},
		{name: "verbose wins over live", mode: "live", verbose: true, isTTY: true, wantWarn: "--verbose"},
		{name: "invalid mode", mode: "fancy", isTTY: true, wantErr: true},
	}

	origTTY, origEnv := isTerminal, lookupEnv
	t.Cleanup(func() { isTerminal, lookupEnv = origTTY, origEnv })

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isTerminal = func(io.Writer) bool { return tc.isTTY }
			lookupEnv = func(key string) (string, bool) {
				if key == "TERM" && tc.term != "" {
					return tc.term, true
				}
				return "", false
			}
			decision, err := resolveUIMode(tc.mode, tc.verbose, nil)
			if tc.wantErr {
				if err == nil || !strings.Contains(err.Error(), "--ui") {
					t.Fatalf("expected --ui error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.useLive != tc.wantLive {
				t.Fatalf("useLive = %v, want %v", decision.useLive, tc.wantLive)
			}
			if tc.wantLive && decision.logFile != batchLogFile {
				t.Fatalf("live mode should log to %s, got %q", batchLogFile, decision.logFile)
			}
			if !tc.wantLive && decision.logFile != "" {
				t.Fatalf("plain mode should keep logs on stderr, got %q", decision.logFile)
			}
			if tc.wantWarn == "" && decision.warning != "" {
				t.Fatalf("unexpected warning %q", decision.warning)
			}
			if tc.wantWarn != "" && !strings.Contains(decision.warning, tc.wantWarn) {
				t.Fatalf("warning %q does not mention %q", decision.warning, tc.wantWarn)
			}
		})
	}
}
