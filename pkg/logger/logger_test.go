package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel(t *testing.T) {
	prevLog, prevGlobal := Log, zerolog.GlobalLevel()
	t.Cleanup(func() {
		Log = prevLog
		zerolog.SetGlobalLevel(prevGlobal)
	})

	var buf bytes.Buffer
	Log = New(&buf)

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			SetLevel(tt.in)
			if got := Log.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
			if got := zerolog.GlobalLevel(); got != tt.want {
				t.Errorf("global level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	var buf bytes.Buffer
	Log = New(&buf)
	l := Component("pipeline")
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"pipeline"`) {
		t.Errorf("output = %s", buf.String())
	}
}
