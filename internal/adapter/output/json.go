package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/samber/lo"

	"github.com/jmylchreest/overbar/internal/model"
)

// Record is the structured form of a message in json and yaml output.
type Record struct {
	ID         string    `json:"id" yaml:"id"`
	Text       string    `json:"text" yaml:"text"`
	Type       string    `json:"type" yaml:"type"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	Animated   bool      `json:"animated" yaml:"animated"`
	Immediate  bool      `json:"immediate" yaml:"immediate"`
	PostedAt   time.Time `json:"posted_at" yaml:"posted_at"`
}

// NewRecord converts a message.
func NewRecord(m model.Message) Record {
	return Record{
		ID:         m.ID,
		Text:       m.Text,
		Type:       m.TypeName,
		DurationMS: m.Duration.Milliseconds(),
		Animated:   m.Animated,
		Immediate:  m.Immediate,
		PostedAt:   m.PostedAt,
	}
}

func newRecords(messages []model.Message) []Record {
	return lo.Map(messages, func(m model.Message, _ int) Record {
		return NewRecord(m)
	})
}

// JSONFormatter formats messages as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes messages as a JSON array.
func (f *JSONFormatter) Format(w io.Writer, messages []model.Message) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newRecords(messages))
}

// FormatSingle writes a single message as JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, m *model.Message) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewRecord(*m))
}
