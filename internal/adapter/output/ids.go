package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/overbar/internal/model"
)

// IDsFormatter outputs just the message IDs, one per line.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes message IDs to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, messages []model.Message) error {
	for _, m := range messages {
		if _, err := fmt.Fprintln(w, m.ID); err != nil {
			return err
		}
	}
	return nil
}
