// Package cli provides shared formatting helpers for the newtboot CLI.
package cli

import (
	"os"
	"strings"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

func wrap(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string { return wrap("32", s) }

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string { return wrap("33", s) }

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string { return wrap("31", s) }

// Cyan wraps s in ANSI cyan. Returns s unchanged when NO_COLOR is set.
func Cyan(s string) string { return wrap("36", s) }

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string { return wrap("1", s) }

// Dim wraps s in ANSI dim. Returns s unchanged when NO_COLOR is set.
func Dim(s string) string { return wrap("2", s) }

// DotPad pads name with dots to the given width.
// Example: DotPad("r1", 12) → "r1 ........."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// ColorDiff colours a configuration diff: added lines green, removed lines
// red, hierarchy headers such as "[edit interfaces]" cyan.
func ColorDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		switch {
		case strings.HasPrefix(trimmed, "+"):
			lines[i] = Green(line)
		case strings.HasPrefix(trimmed, "-"):
			lines[i] = Red(line)
		case strings.HasPrefix(trimmed, "[edit"), strings.HasPrefix(trimmed, "Building configuration"):
			lines[i] = Cyan(line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
