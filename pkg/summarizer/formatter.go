package summarizer

import (
	"fmt"
	"strings"
)

// Formatter defines the interface for formatting a Summary.
type Formatter interface {
	// Format converts a Summary to a formatted string.
	Format(summary *Summary) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// FormatterFor returns the formatter registered under name.
func FormatterFor(name string, opts ...Option) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "markdown", "md":
		return NewMarkdownFormatter(opts...), nil
	case "text", "txt":
		return NewTextFormatter(opts...), nil
	}
	return nil, fmt.Errorf("unknown report format %q", name)
}
