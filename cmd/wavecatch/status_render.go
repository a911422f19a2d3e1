package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

// statusStyles maps each kind to its badge and colour, indexed by statusKind.
var statusStyles = [...]struct {
	badge string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) style() (string, string) {
	if k < 0 || int(k) >= len(statusStyles) {
		k = statusInfo
	}
	return statusStyles[k].badge, statusStyles[k].color
}

// renderStatusLine formats "  Label:          [BADGE] message".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge, color := kind.style()
	line := fmt.Sprintf("%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", badge)
	if message != "" {
		line += " " + message
	}
	return paint(line, color, colorize)
}

// statusKindFromSeverity maps the daemon's severity strings ("ok", "warn",
// "error") onto badges; anything else is informational.
func statusKindFromSeverity(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn", "warning":
		return statusWarn
	case "error":
		return statusError
	}
	return statusInfo
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{paint(line, ansiBlue, colorize), paint(rule, ansiBlue, colorize)}
}

func paint(value, color string, colorize bool) string {
	if !colorize || color == "" || value == "" {
		return value
	}
	return color + value + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
