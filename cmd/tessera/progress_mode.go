package main

import (
	"fmt"
	"os"
	"strings"
)

// progressMode selects how "tessera build" reports phase progress.
type progressMode uint8

const (
	// progressAuto shows the progress view when stdout is a terminal.
	progressAuto progressMode = iota
	progressView
	// progressPlain prints diagnostics and the result line only.
	progressPlain
)

var progressModeNames = map[string]progressMode{
	"":      progressAuto,
	"auto":  progressAuto,
	"view":  progressView,
	"on":    progressView,
	"plain": progressPlain,
	"off":   progressPlain,
}

func parseProgressMode(value string) (progressMode, error) {
	mode, ok := progressModeNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return progressAuto, fmt.Errorf("invalid --progress value %q (expected auto|view|plain)", value)
	}
	return mode, nil
}

// showProgressView decides whether a build runs under the bubbletea view.
// --quiet always wins.
func showProgressView(mode progressMode, quiet bool, out *os.File) bool {
	switch {
	case quiet, mode == progressPlain:
		return false
	case mode == progressView:
		return true
	}
	return isTerminal(out)
}
