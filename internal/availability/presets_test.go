package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

func TestPresetRange(t *testing.T) {
	today := date("2025-05-17")
	tests := []struct {
		preset, start, end string
	}{
		{PresetNext30, "2025-05-17", "2025-06-15"},
		{PresetNext90, "2025-05-17", "2025-08-14"},
		{PresetQuarter, "2025-05-17", "2025-06-30"},
		{PresetYear, "2025-05-17", "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			start, end, err := PresetRange(tt.preset, today)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start.String())
			assert.Equal(t, tt.end, end.String())
		})
	}
}

func TestPresetRangeFourthQuarter(t *testing.T) {
	_, end, err := PresetRange(PresetQuarter, date("2025-11-02"))
	require.NoError(t, err)
	assert.Equal(t, "2025-12-31", end.String())
}

func TestPresetRangeErrors(t *testing.T) {
	_, _, err := PresetRange("next7", date("2025-01-01"))
	assert.Error(t, err)
	_, _, err = PresetRange(PresetNext30, models.Date{})
	assert.Error(t, err)
}
