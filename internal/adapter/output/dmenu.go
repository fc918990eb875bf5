package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/overbar/internal/model"
)

// DmenuFormatter formats messages one per line for dmenu/rofi/fuzzel.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes messages in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, messages []model.Message) error {
	for i := range messages {
		if _, err := fmt.Fprintln(w, f.formatLine(i+1, &messages[i])); err != nil {
			return err
		}
	}
	return nil
}

// formatLine renders: index | time | type | text
func (f *DmenuFormatter) formatLine(index int, m *model.Message) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, m, f.opts)); err == nil {
			return buf.String()
		}
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowTime {
		parts = append(parts, relativeTime(m.PostedAt, f.opts.now()))
	}
	parts = append(parts, m.TypeName, truncateText(m.Text, f.opts.TextWidth))

	return strings.Join(parts, sep)
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Message      *model.Message
	RelativeTime string
	Time         string
}

func newTemplateData(index int, m *model.Message, opts FormatterOptions) templateData {
	return templateData{
		Index:        index,
		Message:      m,
		RelativeTime: relativeTime(m.PostedAt, opts.now()),
		Time:         formatTime(m.PostedAt, opts),
	}
}

// templateFuncs returns template helper functions.
func templateFuncs(opts FormatterOptions) template.FuncMap {
	return template.FuncMap{
		"truncate": truncateText,
		"reltime": func(t time.Time) string {
			return relativeTime(t, opts.now())
		},
		"indicator": func(m *model.Message) string {
			switch m.Indicator() {
			case model.IndicatorCheck:
				return "✓"
			case model.IndicatorCross:
				return "✗"
			default:
				return "…"
			}
		},
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// relativeTime returns a human-readable time relative to now.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if now.Sub(t) < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatTime(t time.Time, opts FormatterOptions) string {
	if opts.Relative || opts.TimeFormat == "" {
		return relativeTime(t, opts.now())
	}
	return t.Local().Format(opts.TimeFormat)
}

// truncateText collapses whitespace and shortens text to maxLen runes.
func truncateText(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
