package mapreduce

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func collectEmissions(t *testing.T, m Mapper, key string, value any) map[string][]any {
	t.Helper()
	out := make(map[string][]any)
	require.NoError(t, m.Map(key, value, func(k string, v any) {
		out[k] = append(out[k], v)
	}))
	return out
}

func TestIdentityMapper(t *testing.T) {
	out := collectEmissions(t, IdentityMapper{}, "k", 42)
	assert.Equal(t, map[string][]any{"k": {42}}, out)
}

func TestIdentityReducer(t *testing.T) {
	v, err := IdentityReducer{}.Reduce("k", []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestWordCountMapper(t *testing.T) {
	out := collectEmissions(t, WordCountMapper{}, "doc", "the cat and the hat")
	assert.Equal(t, []any{1, 1}, out["the"])
	assert.Equal(t, []any{1}, out["cat"])
	assert.Len(t, out, 4)
}

func TestWordCountMapper_RejectsNonString(t *testing.T) {
	err := WordCountMapper{}.Map("doc", 7, func(string, any) {})
	assert.ErrorContains(t, err, "expects a string")
}

func TestSumReducer(t *testing.T) {
	v, err := SumReducer{}.Reduce("k", []any{1, int64(2), 3.0})
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	v, err = SumReducer{}.Reduce("k", []any{0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	v, err = SumReducer{}.Reduce("k", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = SumReducer{}.Reduce("k", []any{"seven"})
	assert.ErrorContains(t, err, "not numeric")
}

func TestSumReducer_LargeTotalsStayFloat(t *testing.T) {
	// Past 2^53 an integral-looking float64 total may have lost precision,
	// so it must not be narrowed to int64.
	huge := float64(uint64(1) << 60)

	v, err := SumReducer{}.Reduce("k", []any{huge, 1.0})
	require.NoError(t, err)
	assert.IsType(t, float64(0), v)

	v, err = SumReducer{}.Reduce("k", []any{-huge, -1.0})
	require.NoError(t, err)
	assert.IsType(t, float64(0), v)

	// Just inside the exact range the int64 narrowing still applies.
	v, err = SumReducer{}.Reduce("k", []any{float64(1<<53 - 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1<<53-1), v)
}

func TestListReader(t *testing.T) {
	ds, err := ListReader{}.Read([]string{"first", "second"})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"000000", "000001"}, ds.Keys())
	v, ok := ds.Value("000001")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestLineReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644))

	ds, err := LineReader{}.Read([]string{path})
	require.NoError(t, err)
	require.Len(t, ds.Keys(), 3)

	v, ok := ds.Value(path + ":2")
	require.True(t, ok)
	assert.Equal(t, "beta", v)
}

func TestLineReader_MissingFile(t *testing.T) {
	_, err := LineReader{}.Read([]string{filepath.Join(t.TempDir(), "nope.txt")})
	assert.ErrorContains(t, err, "open input")
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("contents of a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("contents of b"), 0o644))

	ds, err := FileReader{}.Read([]string{a, b})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a, b}, ds.Keys())

	v, ok := ds.Value(a)
	require.True(t, ok)
	assert.Equal(t, "contents of a", v)
}

// TestProperty_WordCountConservesWords checks that the per-word emissions of
// the word count mapper always add up to the number of words in the input.
func TestProperty_WordCountConservesWords(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-z \t\n]{0,64}`).Draw(t, "text")

		out := make(map[string][]any)
		err := WordCountMapper{}.Map("doc", text, func(k string, v any) {
			out[k] = append(out[k], v)
		})
		if err != nil {
			t.Fatalf("map failed: %v", err)
		}

		total := 0
		for _, values := range out {
			total += len(values)
		}
		if want := len(strings.Fields(text)); total != want {
			t.Fatalf("emitted %d counts for %d words", total, want)
		}
	})
}
