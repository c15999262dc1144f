package quality_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/proscan/pkg/quality"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	th := quality.DefaultThresholds()

	tests := []struct {
		name    string
		metrics quality.Metrics
		want    quality.Defect
	}{
		{name: "clean", metrics: quality.Metrics{Blur: 0.9, Contrast: 0.9, EdgeIntegrity: 0.9}, want: quality.DefectNone},
		{name: "blur_first", metrics: quality.Metrics{Blur: 0.1, Contrast: 0.1, EdgeIntegrity: 0.1}, want: quality.DefectBlur},
		{name: "low_contrast", metrics: quality.Metrics{Blur: 0.9, Contrast: 0.1, EdgeIntegrity: 0.1}, want: quality.DefectLowContrast},
		{name: "broken", metrics: quality.Metrics{Blur: 0.9, Contrast: 0.9, EdgeIntegrity: 0.2}, want: quality.DefectBroken},
		{name: "at_threshold_is_ok", metrics: quality.Metrics{Blur: 0.35, Contrast: 0.25, EdgeIntegrity: 0.5}, want: quality.DefectNone},
		{name: "nan_is_invalid", metrics: quality.Metrics{Blur: math.NaN(), Contrast: 0.9, EdgeIntegrity: 0.9}, want: quality.DefectInvalid},
		{name: "out_of_range_is_invalid", metrics: quality.Metrics{Blur: 0.9, Contrast: 1.2, EdgeIntegrity: 0.9}, want: quality.DefectInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, quality.Classify(tt.metrics, th))
		})
	}
}

func TestThresholds_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, quality.DefaultThresholds().Validate())
	require.NoError(t, quality.Thresholds{}.Validate())

	err := quality.Thresholds{Blur: 0.3, Contrast: -0.1, EdgeIntegrity: 0.5}.Validate()
	require.ErrorIs(t, err, quality.ErrInvalidThresholds)
	assert.Contains(t, err.Error(), "contrast")
}

func TestDefect_Text(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal([]quality.Defect{quality.DefectNone, quality.DefectLowContrast})
	require.NoError(t, err)
	assert.JSONEq(t, `["OK","LOW_CONTRAST"]`, string(data))

	var back []quality.Defect

	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []quality.Defect{quality.DefectNone, quality.DefectLowContrast}, back)

	var d quality.Defect

	require.Error(t, d.UnmarshalText([]byte("SMUDGE")))
}
