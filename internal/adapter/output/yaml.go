package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/overbar/internal/model"
)

// YAMLFormatter formats messages as a YAML sequence.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes messages as YAML.
func (f *YAMLFormatter) Format(w io.Writer, messages []model.Message) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(newRecords(messages)); err != nil {
		return err
	}
	return encoder.Close()
}
