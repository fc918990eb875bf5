package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Duration(dbus.DefaultDuration), false},
		{"default", time.Duration(dbus.DefaultDuration), false},
		{"0", 0, false},
		{"1500", 1500 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{"-1", 0, true},
		{"-2s", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTypes(t *testing.T) {
	types, err := parseTypes([]string{"finish,error", "activity"})
	require.NoError(t, err)
	assert.Equal(t, []model.MessageType{model.MessageTypeFinish, model.MessageTypeError, model.MessageTypeActivity}, types)

	types, err = parseTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, types)

	_, err = parseTypes([]string{"warning"})
	assert.ErrorIs(t, err, model.ErrInvalidMessageType)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"post", "activity", "finish", "error", "hide", "show", "touch", "status", "history", "watch", "state"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
