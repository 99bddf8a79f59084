package sproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossIdenticalBundles(t *testing.T) {
	field := buildScalarField(t, "x", 0, 0)
	typ := buildType(t, "Point", [][]byte{field})
	bundle := buildBundle(t, [][]byte{typ}, nil)

	catA, err := ParseBundle(bundle, DefaultLimits)
	require.NoError(t, err)
	catB, err := ParseBundle(append([]byte(nil), bundle...), DefaultLimits)
	require.NoError(t, err)

	require.Equal(t, catA.Fingerprint(), catB.Fingerprint())
}

func TestFingerprintChangesWithSchema(t *testing.T) {
	xField := buildScalarField(t, "x", 0, 0)
	original := buildBundle(t, [][]byte{buildType(t, "Point", [][]byte{xField})}, nil)

	movedField := buildScalarField(t, "x", 0, 1) // same field, different tag
	changed := buildBundle(t, [][]byte{buildType(t, "Point", [][]byte{movedField})}, nil)

	catA, err := ParseBundle(original, DefaultLimits)
	require.NoError(t, err)
	catB, err := ParseBundle(changed, DefaultLimits)
	require.NoError(t, err)

	require.NotEqual(t, catA.Fingerprint(), catB.Fingerprint())
}
