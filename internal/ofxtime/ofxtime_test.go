package ofxtime

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want civil.Date
	}{
		{"20211217215753.211[-8:PST]", civil.Date{Year: 2021, Month: 12, Day: 17}},
		{"20211130000000[-8:PST]", civil.Date{Year: 2021, Month: 11, Day: 30}},
		{"20241108120000.000", civil.Date{Year: 2024, Month: 11, Day: 8}},
		{"20241115120000", civil.Date{Year: 2024, Month: 11, Day: 15}},
		{"20241102200000.000[-4:EDT]", civil.Date{Year: 2024, Month: 11, Day: 2}},
		{"20241231", civil.Date{Year: 2024, Month: 12, Day: 31}},
		{"20240101233000[+5.5:IST]", civil.Date{Year: 2024, Month: 1, Day: 1}},
		{"20240101000000[0:GMT]", civil.Date{Year: 2024, Month: 1, Day: 1}},
		{"20240101000000[-10]", civil.Date{Year: 2024, Month: 1, Day: 1}},
		{"  20240229120000.5[+1:CET] ", civil.Date{Year: 2024, Month: 2, Day: 29}},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.raw)
		require.NoError(t, err, "Normalize(%q)", tt.raw)
		assert.Equal(t, tt.want, got, "Normalize(%q)", tt.raw)
	}
}

func TestNormalize_KeepsLocalDate(t *testing.T) {
	// 23:30 at -8 is already the next day in UTC.
	got, err := Normalize("20211217233000[-8:PST]")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2021, Month: 12, Day: 17}, got)
}

func TestParse_Offset(t *testing.T) {
	ts, err := Parse("20211217215753.211[-8:PST]")
	require.NoError(t, err)
	name, secs := ts.Zone()
	assert.Equal(t, "PST", name)
	assert.Equal(t, -8*3600, secs)
	assert.Equal(t, 211000000, ts.Nanosecond())

	ts, err = Parse("20240101233000[+5.5:IST]")
	require.NoError(t, err)
	_, secs = ts.Zone()
	assert.Equal(t, 5*3600+30*60, secs)
}

func TestNormalize_Bad(t *testing.T) {
	bad := []string{
		"",
		"2021-12-17",
		"20211317000000",
		"20211232000000",
		"20211217250000",
		"202112172157",
		"20211217215753[-8:PST",
		"20211217215753[-99:XXX]",
		"yesterday",
	}
	for _, raw := range bad {
		_, err := Normalize(raw)
		require.Error(t, err, "Normalize(%q)", raw)

		var bt *BadTimestampError
		require.True(t, errors.As(err, &bt), "Normalize(%q) error type", raw)
		assert.Equal(t, raw, bt.Raw)
		assert.Contains(t, err.Error(), "bad timestamp")
	}
}
