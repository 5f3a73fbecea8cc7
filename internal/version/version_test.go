package version

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Version
		ok   bool
	}{
		{name: "zero", in: "0.0.0", want: Version{}, ok: true},
		{name: "plain", in: "1.2.3", want: Version{Major: 1, Minor: 2, Micro: 3}, ok: true},
		{name: "leading_zero", in: "01.2.03", want: Version{Major: 1, Minor: 2, Micro: 3}, ok: true},
		{name: "large", in: "10.200.3000", want: Version{Major: 10, Minor: 200, Micro: 3000}, ok: true},
		{name: "two_parts", in: "1.2"},
		{name: "four_parts", in: "1.2.3.4"},
		{name: "empty", in: ""},
		{name: "empty_part", in: "1..3"},
		{name: "negative", in: "1.-2.3"},
		{name: "plus", in: "+1.2.3"},
		{name: "alpha", in: "1.2.x"},
		{name: "prefix", in: "v1.2.3"},
		{name: "spaces", in: " 1.2.3"},
		{name: "largest", in: "1.0.18446744073709551614", want: Version{Major: 1, Micro: math.MaxUint64 - 1}, ok: true},
		{name: "max_component", in: "1.0.18446744073709551615"},
		{name: "out_of_range", in: "1.0.18446744073709551616"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.in)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedVersion), "error %v should wrap ErrMalformedVersion", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"0.0.0", "0.0.3", "1.0.0", "12.34.56"} {
		v, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, v.String())

		again, err := Parse(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, again)
	}
}

func TestBump(t *testing.T) {
	t.Parallel()

	v := MustParse("1.2.3")
	assert.Equal(t, "1.2.4", v.Bump(ModeMicro).String())
	assert.Equal(t, "1.3.0", v.Bump(ModeMinor).String())
	assert.Equal(t, "2.0.0", v.Bump(ModeMajor).String())
	// anything else falls back to micro
	assert.Equal(t, "1.2.4", v.Bump(ModeRelease).String())
	assert.Equal(t, "1.2.4", v.Bump(Mode("bogus")).String())
	// the receiver is not modified
	assert.Equal(t, "1.2.3", v.String())
}

func TestBumpLargestComponentStaysOrdered(t *testing.T) {
	t.Parallel()

	v := MustParse("1.18446744073709551614.18446744073709551614")
	for _, mode := range []Mode{ModeMicro, ModeMinor, ModeMajor} {
		assert.True(t, v.Less(v.Bump(mode)), "%s bump of %s", mode, v)
	}
}

func TestBumpChainAlwaysLandsOnMajorOneOne(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"0.0.0", "0.9.9", "3.1.4", "7.0.12"} {
		v := MustParse(s)
		got := v.Bump(ModeMajor).Bump(ModeMinor).Bump(ModeMicro)
		assert.Equal(t, Version{Major: v.Major + 1, Minor: 1, Micro: 1}, got, "from %s", s)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	ordered := []string{"0.0.1", "0.0.2", "0.1.0", "0.10.0", "1.0.0", "1.0.10"}
	for i := 0; i+1 < len(ordered); i++ {
		a, b := MustParse(ordered[i]), MustParse(ordered[i+1])
		assert.Equal(t, -1, a.Compare(b), "%s < %s", a, b)
		assert.Equal(t, 1, b.Compare(a), "%s > %s", b, a)
		assert.True(t, a.Less(b))
	}
	assert.Equal(t, 0, MustParse("1.2.3").Compare(MustParse("01.02.03")))
}

func TestNext(t *testing.T) {
	t.Parallel()

	cur := MustParse("0.0.3")
	assert.Equal(t, cur, Next(cur, ModeMinor, true))
	assert.Equal(t, MustParse("0.1.0"), Next(cur, ModeMinor, false))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode(" MINOR ")
	require.NoError(t, err)
	assert.Equal(t, ModeMinor, got)

	_, err = ParseMode("make-beta")
	assert.ErrorContains(t, err, "micro, minor, major, release")

	assert.True(t, ModeMajor.IsBeta())
	assert.False(t, ModeRelease.IsBeta())
}
