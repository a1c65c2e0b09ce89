package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationKey(t *testing.T) {
	day := time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		layout         string
		separator      string
		sourceIdentity string
		want           string
	}{
		{
			name:           "iso date with underscore",
			layout:         "2006-01-02",
			separator:      "_",
			sourceIdentity: "FOCUS Reports/2024/11/28/report-0001.csv.gz",
			want:           "2024-11-28_report-0001.csv.gz",
		},
		{
			name:           "compact date with dash",
			layout:         "20060102",
			separator:      "-",
			sourceIdentity: "reports/part-00000.csv.gz",
			want:           "20241128-part-00000.csv.gz",
		},
		{
			name:           "bare basename source",
			layout:         "2006-01-02",
			separator:      "_",
			sourceIdentity: "report.csv.gz",
			want:           "2024-11-28_report.csv.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(tt.layout, tt.separator)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.DestinationKey(tt.sourceIdentity, day))
		})
	}
}

func TestDestinationKeyDeterministic(t *testing.T) {
	n, err := New("2006-01-02", "_")
	require.NoError(t, err)

	day := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	first := n.DestinationKey("a/b/c.csv.gz", day)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, n.DestinationKey("a/b/c.csv.gz", day))
	}
}

func TestBasenameCollisionLastWins(t *testing.T) {
	// Distinct source paths with the same basename map to the same key.
	// Documented property of the flat naming contract.
	n, err := New("2006-01-02", "_")
	require.NoError(t, err)

	day := time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC)
	a := n.DestinationKey("tenants/one/report.csv.gz", day)
	b := n.DestinationKey("tenants/two/report.csv.gz", day)
	assert.Equal(t, a, b)
}

func TestNewRejectsUnsafeConfig(t *testing.T) {
	tests := []struct {
		name      string
		layout    string
		separator string
	}{
		{name: "slash in layout", layout: "2006/01/02", separator: "_"},
		{name: "space in layout", layout: "2006 01 02", separator: "_"},
		{name: "slash separator", layout: "2006-01-02", separator: "/"},
		{name: "space separator", layout: "2006-01-02", separator: " "},
		{name: "tab separator", layout: "2006-01-02", separator: "\t"},
		{name: "empty layout", layout: "", separator: "_"},
		{name: "empty separator", layout: "2006-01-02", separator: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.layout, tt.separator)
			assert.Error(t, err)
		})
	}
}
