package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	debugTag = color.New(color.FgHiBlack).Sprint("[DEBUG]")
	infoTag  = color.New(color.FgCyan).Sprint("[INFO]")
	warnTag  = color.New(color.FgYellow).Sprint("[WARN]")
	errorTag = color.New(color.FgRed, color.Bold).Sprint("[ERROR]")
)

type Logger struct {
	Debug bool
	out   io.Writer
}

func NewLogger(debug bool) *Logger {
	return NewLoggerTo(os.Stdout, debug)
}

// NewLoggerTo writes every level to w. Tests pass a buffer or io.Discard.
func NewLoggerTo(w io.Writer, debug bool) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{Debug: debug, out: w}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.Debug {
		l.printf(debugTag, format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.printf(infoTag, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.printf(warnTag, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.printf(errorTag, format, args...)
}

func (l *Logger) printf(tag, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = fmt.Fprint(l.out, tag+" "+msg)
}
