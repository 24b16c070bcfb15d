// Package logger prints tagged, optionally coloured console lines.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

var (
	mu     sync.Mutex
	out    io.Writer // nil means os.Stdout, looked up on every write
	color  = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	silent bool
)

// SetOutput redirects all log lines to w and disables colour.
// Passing nil restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	if w != nil {
		color = false
	}
}

// SetQuiet suppresses Info and Success lines. Warnings and errors still print.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	silent = q
}

func writer() io.Writer {
	if out != nil {
		return out
	}
	return os.Stdout
}

func paint(c, s string) string {
	if !color {
		return s
	}
	return c + s + reset
}

func line(level, c, tag, msg string, quietable bool) {
	mu.Lock()
	defer mu.Unlock()
	if quietable && silent {
		return
	}
	ts := paint(dim, time.Now().Format("15:04:05"))
	fmt.Fprintf(writer(), "%s %s %s %s\n", ts, paint(c, level), paint(bold, "["+tag+"]"), msg)
}

// Info logs a routine progress message.
func Info(tag, msg string) { line("INFO", cyan, tag, msg, true) }

// Success logs a completed step.
func Success(tag, msg string) { line(" OK ", green, tag, msg, true) }

// Warn logs a recoverable problem, such as rejected evidence.
func Warn(tag, msg string) { line("WARN", yellow, tag, msg, false) }

// Error logs a failure.
func Error(tag, msg string) { line("FAIL", red, tag, msg, false) }

// Banner prints the startup banner.
func Banner(version string) {
	mu.Lock()
	defer mu.Unlock()
	if version == "" {
		version = "dev"
	}
	title := "elite-starscan " + version
	bar := strings.Repeat("=", len(title)+4)
	fmt.Fprintln(writer(), paint(cyan, bar))
	fmt.Fprintln(writer(), paint(bold, "  "+title))
	fmt.Fprintln(writer(), paint(cyan, bar))
}

// Section prints a heading for a block of Stats lines.
func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(writer(), "\n%s\n", paint(bold, "── "+title+" ──"))
}

// Stats prints one aligned key/value line.
func Stats(key string, value interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(writer(), "  %-22s %v\n", key+":", value)
}

// Server announces the HTTP listen address.
func Server(addr string) {
	Success("HTTP", fmt.Sprintf("Listening on http://%s", addr))
}
