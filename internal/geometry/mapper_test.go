package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapToSource_LetterFromPreview(t *testing.T) {
	t.Parallel()

	got, fb := MapToSource(Point{X: 50, Y: 100}, Size{W: 612, H: 792}, Size{W: 600, H: 800})
	require.False(t, fb.Any())
	require.InDelta(t, 51.0, got.X, 1e-9)
	require.InDelta(t, 693.0, got.Y, 1e-9)
}

func TestMapToSource_IdentityWhenSizesMatch(t *testing.T) {
	t.Parallel()

	src := Size{W: 595, H: 842}
	got, fb := MapToSource(Point{X: 10.5, Y: 20.25}, src, src)
	require.False(t, fb.Any())
	require.Equal(t, 10.5, got.X)
	require.Equal(t, 842-20.25, got.Y)
}

func TestMapToSource_FallbackPerAxis(t *testing.T) {
	t.Parallel()

	src := Size{W: 612, H: 792}
	cases := []struct {
		name    string
		preview Size
		want    Fallback
	}{
		{"zero", Size{}, Fallback{Width: true, Height: true}},
		{"negative width", Size{W: -1, H: 800}, Fallback{Width: true}},
		{"nan height", Size{W: 600, H: math.NaN()}, Fallback{Height: true}},
		{"inf width", Size{W: math.Inf(1), H: 800}, Fallback{Width: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, fb := MapToSource(Point{X: 30, Y: 40}, src, tc.preview)
			require.Equal(t, tc.want, fb)
			if tc.want.Width {
				require.Equal(t, 30.0, got.X)
			}
			if tc.want.Height {
				require.Equal(t, 792.0-40, got.Y)
			}
		})
	}
}

func TestMapToSource_YDecreasesAsPreviewYGrows(t *testing.T) {
	t.Parallel()

	src, preview := Size{W: 612, H: 792}, Size{W: 600, H: 800}
	prev := math.Inf(1)
	for y := 0.0; y <= 800; y += 25 {
		got, _ := MapToSource(Point{Y: y}, src, preview)
		require.Less(t, got.Y, prev)
		prev = got.Y
	}
}

func TestScale_Positive(t *testing.T) {
	t.Parallel()

	sx, sy, _ := Scale(Size{W: 612, H: 792}, Size{W: 1224, H: 396})
	require.Greater(t, sx, 0.0)
	require.Greater(t, sy, 0.0)
	require.Equal(t, 0.5, sx)
	require.Equal(t, 2.0, sy)
}

func TestPageIndex(t *testing.T) {
	t.Parallel()

	i, ok := PageIndex(1, 3)
	require.True(t, ok)
	require.Equal(t, 0, i)

	i, ok = PageIndex(3, 3)
	require.True(t, ok)
	require.Equal(t, 2, i)

	_, ok = PageIndex(4, 3)
	require.False(t, ok)
	_, ok = PageIndex(0, 3)
	require.False(t, ok)
}
