// Package output formats overlay history for the terminal and for scripts.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jmylchreest/overbar/internal/model"
)

// Formatter formats messages for output.
type Formatter interface {
	// Format writes formatted messages to the writer.
	Format(w io.Writer, messages []model.Message) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// FormatTypes lists the supported formats.
var FormatTypes = []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}

// ParseFormat parses a format name (case-insensitive).
func ParseFormat(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	if lo.Contains(FormatTypes, f) {
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q, must be one of: %v", s, FormatTypes)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template   string // Custom template for dmenu/plain format
	ShowIndex  bool   // Show 1-based index prefix
	ShowTime   bool   // Show the post time
	Relative   bool   // Show times as "3 minutes ago" instead of TimeFormat
	TimeFormat string // Go time layout for absolute times
	TextWidth  int    // Maximum text length (0 = unlimited)
	Separator  string // Field separator for dmenu format

	// Now anchors relative times; zero means time.Now.
	Now time.Time
}

// DefaultFormatterOptions returns sensible defaults for plain output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:  true,
		ShowTime:   true,
		TimeFormat: "15:04:05",
		TextWidth:  60,
		Separator:  " | ",
	}
}
