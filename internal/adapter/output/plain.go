package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/overbar/internal/model"
)

// PlainFormatter formats messages as aligned text lines.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes one line per message.
func (f *PlainFormatter) Format(w io.Writer, messages []model.Message) error {
	for i := range messages {
		if err := f.formatMessage(w, i+1, &messages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatMessage(w io.Writer, index int, m *model.Message) error {
	if f.template != nil {
		if err := f.template.Execute(w, newTemplateData(index, m, f.opts)); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}
	if f.opts.ShowTime {
		sb.WriteString(formatTime(m.PostedAt, f.opts))
		sb.WriteString(" ")
	}
	fmt.Fprintf(&sb, "%-8s ", m.TypeName)
	sb.WriteString(truncateText(m.Text, f.opts.TextWidth))
	if m.Duration > 0 {
		fmt.Fprintf(&sb, " (%s)", m.Duration)
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatField outputs a specific field of a message.
func FormatField(m *model.Message, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return m.ID
	case "type":
		return m.TypeName
	case "duration":
		return m.Duration.String()
	case "posted_at", "time":
		return m.PostedAt.Format("2006-01-02T15:04:05Z07:00")
	case "indicator":
		return string(m.Indicator())
	default:
		return m.Text
	}
}
