package printer

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
)

// Success writes a line prefixed with a green check mark.
func Success(w io.Writer, format string, args ...any) {
	line(w, successColor.Sprint("✓"), format, args...)
}

// Failure writes a line prefixed with a red cross.
func Failure(w io.Writer, format string, args ...any) {
	line(w, failureColor.Sprint("✗"), format, args...)
}

// Warning writes a yellow warning line.
func Warning(w io.Writer, format string, args ...any) {
	line(w, warningColor.Sprint("!"), "%s", warningColor.Sprintf(format, args...))
}

func line(w io.Writer, prefix string, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}
