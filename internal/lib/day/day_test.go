package day

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "valid date", in: "2025-06-10", want: "2025-06-10"},
		{name: "surrounding spaces", in: " 2025-06-09 ", want: "2025-06-09"},
		{name: "wrong layout", in: "10-06-2025", wantErr: true},
		{name: "impossible day", in: "2025-02-30", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToday_TruncatesTimeOfDay(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 6, 9, 23, 59, 0, 0, time.Local) }
	today := Today(clock)

	assert.Equal(t, "2025-06-09", today.String())
	assert.Equal(t, 0, today.Hour())

	same, err := Parse("2025-06-09")
	require.NoError(t, err)
	assert.True(t, today.Equal(same))
	assert.False(t, same.After(today))
}

func TestDate_JSON(t *testing.T) {
	d, err := Parse("2025-06-10")
	require.NoError(t, err)

	b, err := json.Marshal(struct {
		Date Date `json:"date"`
	}{Date: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-06-10"}`, string(b))

	var out struct {
		Date Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-07-01"}`), &out))
	assert.Equal(t, "2025-07-01", out.Date.String())
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-10", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}
