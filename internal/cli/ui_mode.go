package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// uiMode is the value of the batch --ui flag.
type uiMode string

const (
	uiAuto  uiMode = "auto"
	uiLive  uiMode = "live"
	uiPlain uiMode = "plain"
)

// batchLogFile receives log output under output_dir while the live table owns the terminal.
const batchLogFile = "hermitbench.log"

// uiModeDecision captures how a batch reports progress.
type uiModeDecision struct {
	useLive bool
	// logFile is set when logs must leave stderr.
	logFile string
	warning string
}

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal

func parseUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return uiAuto, nil
	case uiAuto, uiLive, uiPlain:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid --ui %q (expected auto|live|plain)", value)
	}
}

// resolveUIMode decides between the live batch table and plain progress lines.
// Verbose output prints every turn, so it always uses plain lines.
func resolveUIMode(value string, verbose bool, stdout io.Writer) (uiModeDecision, error) {
	mode, err := parseUIMode(value)
	if err != nil {
		return uiModeDecision{}, err
	}
	if verbose {
		if mode == uiLive {
			return uiModeDecision{warning: "--verbose prints every turn; ignoring --ui live."}, nil
		}
		return uiModeDecision{}, nil
	}
	if mode == uiPlain {
		return uiModeDecision{}, nil
	}
	capable := isTerminal(stdout) && !dumbTerminal()
	switch {
	case capable:
		return uiModeDecision{useLive: true, logFile: batchLogFile}, nil
	case mode == uiLive:
		return uiModeDecision{warning: "Live batch table needs a terminal; printing plain progress lines instead."}, nil
	default:
		return uiModeDecision{}, nil
	}
}

func dumbTerminal() bool {
	value, ok := lookupEnv("TERM")
	return ok && value == "dumb"
}

// defaultIsTerminal inspects stdout for TTY support.
func defaultIsTerminal(stdout io.Writer) bool {
	if stdout == nil {
		return false
	}
	if file, ok := stdout.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := stdout.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}
