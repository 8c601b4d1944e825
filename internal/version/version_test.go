package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantOK  bool
		isDev   bool
		devName string
	}{
		{name: "simple", input: "1.2.3", wantOK: true},
		{name: "leading v", input: "v1.2.3", wantOK: true},
		{name: "leading V", input: "V2.0.0", wantOK: true},
		{name: "four components", input: "1.2.3.4", wantOK: true},
		{name: "hyphenated prerelease", input: "1.2.3-alpha.1", wantOK: true},
		{name: "bare prerelease", input: "1.0b1", wantOK: true},
		{name: "pl suffix is stable", input: "1.0pl1", wantOK: true},
		{name: "dev suffix", input: "1.0.0-dev", wantOK: true},
		{name: "dev branch literal", input: "dev-main", wantOK: true, isDev: true, devName: "main"},
		{name: "dev feature branch", input: "dev-feature/foo", wantOK: true, isDev: true, devName: "feature/foo"},
		{name: "bare branch name", input: "main", wantOK: true, isDev: true, devName: "main"},
		{name: "feature prefix branch", input: "feature/x", wantOK: true, isDev: true, devName: "feature/x"},
		{name: "empty string", input: "", wantOK: false},
		{name: "garbage", input: "not a version!!", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetCaches()
			v, ok := Parse(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.isDev, v.IsDevBranch())
			if tt.isDev {
				assert.Equal(t, tt.devName, v.DevBranch())
			}
			assert.Equal(t, tt.input, v.String())
		})
	}
}

func TestParseIsMemoized(t *testing.T) {
	ResetCaches()
	v1, ok1 := Parse("1.2.3")
	require.True(t, ok1)
	v2, ok2 := Parse("1.2.3")
	require.True(t, ok2)
	assert.True(t, v1 == v2, "expected the same cached pointer for repeated parses")
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "1.0.0", "1.0.0", 0},
		{"major", "2.0.0", "1.0.0", 1},
		{"minor", "1.2.0", "1.1.0", 1},
		{"patch", "1.0.2", "1.0.1", 1},
		{"release beats prerelease", "1.0.0", "1.0.0-alpha", 1},
		{"alpha before beta", "1.0.0-alpha", "1.0.0-beta", -1},
		{"beta before rc", "1.0.0-beta", "1.0.0-rc", -1},
		{"dev below stable", "dev-main", "1.0.0", -1},
		{"dev branches by name", "dev-a", "dev-b", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetCaches()
			va, ok := Parse(tt.a)
			require.True(t, ok)
			vb, ok := Parse(tt.b)
			require.True(t, ok)
			got := va.Compare(vb)
			if tt.want > 0 {
				assert.Positive(t, got)
			} else if tt.want < 0 {
				assert.Negative(t, got)
			} else {
				assert.Zero(t, got)
			}
		})
	}
}

func TestBump(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"stable patch bump", "1.2.3", "1.2.4"},
		{"stable minor", "1.2.0", "1.2.1"},
		{"prerelease bumps to stable", "1.2.3-alpha.1", "1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetCaches()
			v, ok := Parse(tt.input)
			require.True(t, ok)
			bumped := v.Bump()
			want, ok := Parse(tt.want)
			require.True(t, ok)
			assert.Zero(t, bumped.Compare(want))
		})
	}
}

func TestBumpDevBranchIsIdentity(t *testing.T) {
	ResetCaches()
	v, ok := Parse("dev-main")
	require.True(t, ok)
	assert.Same(t, v, v.Bump())
}

func TestBumpIsAlwaysGreaterForNonDev(t *testing.T) {
	inputs := []string{"1.2.3", "0.0.1", "1.2.3-alpha.1", "9.9.9"}
	for _, in := range inputs {
		ResetCaches()
		v, ok := Parse(in)
		require.True(t, ok)
		assert.Positive(t, v.Bump().Compare(v), "bump(%s) should be greater than %s", in, in)
	}
}

func TestCacheEvictsOldestHalfAtCapacity(t *testing.T) {
	ResetCaches()
	for i := 0; i < maxCacheEntries+100; i++ {
		Parse(versionForIndex(i))
	}
	versionCache.mu.Lock()
	size := len(versionCache.entries)
	versionCache.mu.Unlock()
	assert.LessOrEqual(t, size, maxCacheEntries)
}

func versionForIndex(i int) string {
	return "0.0." + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
