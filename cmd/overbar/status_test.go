package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

func TestGenerateStatus(t *testing.T) {
	cur := model.Message{Text: "Uploading photos to the server", Type: model.MessageTypeActivity, TypeName: "activity"}

	tests := []struct {
		name   string
		status dbus.Status
		width  int
		want   WaybarStatus
	}{
		{
			name:   "hidden",
			status: dbus.Status{Phase: model.PhaseHidden},
			want:   WaybarStatus{Alt: "hidden", Tooltip: "Hidden", Class: "hidden"},
		},
		{
			name:   "shown",
			status: dbus.Status{Phase: model.PhaseShown, Current: &cur},
			want: WaybarStatus{
				Text:    "Uploading photos to the server",
				Alt:     "shown",
				Tooltip: "Uploading photos to the server (activity)\nPhase: shown",
				Class:   "activity",
			},
		},
		{
			name:   "queued",
			status: dbus.Status{Phase: model.PhaseShrinked, Current: &cur, Queued: 1200},
			want: WaybarStatus{
				Text:    "Uploading photos to the server",
				Alt:     "shrinked",
				Tooltip: "Uploading photos to the server (activity)\nPhase: shrinked\n1,200 queued",
				Class:   "activity",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generateStatus(tt.status, tt.width))
		})
	}
}

func TestGenerateStatus_Truncates(t *testing.T) {
	cur := model.Message{Text: "Uploading photos to the server", TypeName: "activity"}
	st := generateStatus(dbus.Status{Phase: model.PhaseShown, Current: &cur}, 10)
	assert.Equal(t, cur.TextTruncated(10), st.Text)
	assert.Contains(t, st.Tooltip, cur.Text, "tooltip keeps the full text")
}

func TestOutputStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputStatus(&buf, WaybarStatus{Text: "hi", Class: "finish"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, "finish", got["class"])
	assert.NotContains(t, got, "alt", "empty fields are omitted")
}
