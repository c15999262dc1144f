package symbology_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want symbology.Symbology
	}{
		{in: "EAN-13", want: symbology.EAN13},
		{in: "ean13", want: symbology.EAN13},
		{in: "code_128", want: symbology.Code128},
		{in: "QR_CODE", want: symbology.QR},
		{in: "qr", want: symbology.QR},
		{in: " data matrix ", want: symbology.DataMatrix},
		{in: "pdf417", want: symbology.PDF417},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := symbology.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	t.Parallel()

	_, err := symbology.Parse("maxicode")
	require.ErrorIs(t, err, symbology.ErrUnknownSymbology)

	_, err = symbology.Parse("unknown")
	require.ErrorIs(t, err, symbology.ErrUnknownSymbology)
}

func TestAll_CoversRequiredFormats(t *testing.T) {
	t.Parallel()

	all := symbology.All()
	assert.Len(t, all, 12)
	assert.NotContains(t, all, symbology.Unknown)
	assert.NotContains(t, all, symbology.PDF417)

	for _, s := range all {
		parsed, err := symbology.Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestLinear(t *testing.T) {
	t.Parallel()

	assert.True(t, symbology.Code128.Linear())
	assert.True(t, symbology.Codabar.Linear())
	assert.False(t, symbology.QR.Linear())
	assert.False(t, symbology.Unknown.Linear())
}

func TestJSONText(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]symbology.Symbology{"s": symbology.UPCE})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"UPC-E"}`, string(data))

	var out map[string]symbology.Symbology

	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, symbology.UPCE, out["s"])
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	a := symbology.NewIdentity(symbology.QR, []byte("hello"))
	b := symbology.NewIdentity(symbology.QR, []byte("hello"))
	c := symbology.NewIdentity(symbology.Code128, []byte("hello"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "QR:hello", a.String())

	seen := map[symbology.Identity]bool{a: true}
	assert.True(t, seen[b])
	assert.False(t, seen[c])
}
