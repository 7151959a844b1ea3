package sl_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("line push failed")
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("line push failed"), attr.Value)
}

func TestErr_NilErrorIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		attr := sl.Err(nil)
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, "", attr.Value.String())
	})
}

func TestOp(t *testing.T) {
	attr := sl.Op("services.harvest.Submit")
	assert.Equal(t, "op", attr.Key)
	assert.Equal(t, "services.harvest.Submit", attr.Value.String())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantDebug bool
		wantJSON  bool
	}{
		{name: "debug text", level: "debug", format: "text", wantDebug: true},
		{name: "info json", level: "info", format: "json", wantJSON: true},
		{name: "unknown level is info", level: "verbose", format: "", wantDebug: false},
		{name: "upper case", level: "DEBUG", format: "JSON", wantDebug: true, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := sl.New(&buf, tt.level, tt.format)

			log.Debug("debug line")
			log.Info("info line", slog.String("k", "v"))

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug line"))
			assert.Contains(t, out, "info line")
			if tt.wantJSON {
				assert.Contains(t, out, `"k":"v"`)
			} else {
				assert.Contains(t, out, "k=v")
			}
		})
	}
}
