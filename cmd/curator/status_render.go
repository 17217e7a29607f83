package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"curator/internal/refresh"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label  string
	colors text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

func (k statusKind) label() string { return statusStyles[k].label }

// renderStatusLine renders "  Label:   [KIND] message" with a fixed label column.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	line := fmt.Sprintf("  %-20s [%s]", label+":", kind.label())
	if message != "" {
		line += " " + message
	}
	return paint(line, kind, colorize)
}

// outcomeKind maps a recorded refresh outcome onto a display severity.
func outcomeKind(outcome string) statusKind {
	switch refresh.Outcome(outcome) {
	case refresh.OutcomeRefreshed:
		return statusOK
	case refresh.OutcomeSkipped, refresh.OutcomeCancelled:
		return statusWarn
	case refresh.OutcomeFailed:
		return statusError
	default:
		return statusInfo
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	return []string{
		paint(heading, statusInfo, colorize),
		paint(strings.Repeat("-", len(heading)), statusInfo, colorize),
	}
}

func paint(value string, kind statusKind, colorize bool) string {
	if !colorize {
		return value
	}
	return statusStyles[kind].colors.Sprint(value)
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
