package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// style is an ANSI SGR sequence.
type style string

const (
	reset  style = "\033[0m"
	red    style = "\033[31m"
	green  style = "\033[32m"
	yellow style = "\033[33m"
	blue   style = "\033[34m"
	cyan   style = "\033[36m"
	bold   style = "\033[1m"
	dim    style = "\033[2m"
)

// colorsEnabled is cleared by NO_COLOR and by tests.
var colorsEnabled = os.Getenv("NO_COLOR") == ""

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func (s style) paint(text string) string {
	if !colorsEnabled {
		return text
	}
	return string(s) + text + string(reset)
}

func colorGreen(text string) string  { return green.paint(text) }
func colorYellow(text string) string { return yellow.paint(text) }
func colorCyan(text string) string   { return cyan.paint(text) }
func colorBold(text string) string   { return bold.paint(text) }
func colorDim(text string) string    { return dim.paint(text) }

func status(w io.Writer, s style, mark, message string) {
	fmt.Fprintf(w, "%s %s\n", s.paint(mark), message)
}

func printSuccess(message string) { status(stdout, green, "✓", message) }
func printError(message string)   { status(stderr, red, "✗", message) }
func printWarning(message string) { status(stdout, yellow, "⚠", message) }
func printInfo(message string)    { status(stdout, blue, "ℹ", message) }

func printHeader(title string) {
	fmt.Fprintf(stdout, "\n%s\n%s\n", bold.paint(cyan.paint(title)), dim.paint(strings.Repeat("─", 40)))
}

// printTable lines up rows under headers. Cells are padded before the
// header is painted so escape codes do not count towards widths.
func printTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	line := func(cells []string, paint func(string) string) {
		parts := make([]string, 0, len(widths))
		for i := 0; i < len(cells) && i < len(widths); i++ {
			parts = append(parts, paint(fmt.Sprintf("%-*s", widths[i], cells[i])))
		}
		fmt.Fprintln(stdout, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}

	plain := func(s string) string { return s }
	line(headers, colorBold)
	line(rules, plain)
	for _, row := range rows {
		line(row, plain)
	}
}
