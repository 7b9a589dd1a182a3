package staging_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/book-expert/voice-cloner/internal/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStager(t *testing.T) *staging.Stager {
	t.Helper()

	stager, err := staging.New(filepath.Join(t.TempDir(), "voices"))
	require.NoError(t, err)

	return stager
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names
}

func TestNew_EmptyRoot(t *testing.T) {
	t.Parallel()

	_, err := staging.New("")
	require.ErrorIs(t, err, staging.ErrRootEmpty)
}

func TestNew_CreatesRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "voices")

	stager, err := staging.New(root)
	require.NoError(t, err)
	assert.DirExists(t, root)
	assert.True(t, filepath.IsAbs(stager.Root()))
}

func TestStage_WritesSamplesByIndex(t *testing.T) {
	t.Parallel()

	stager := newStager(t)
	samples := [][]byte{
		[]byte("RIFF-first-sample"),
		[]byte("RIFF-second-sample"),
		{0x00, 0xff, 0x10, 0x00},
	}

	paths, err := stager.Stage("custom", samples)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	dir, err := stager.Dir("custom")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stager.Root(), "custom"), dir)
	assert.Equal(t, []string{"0.wav", "1.wav", "2.wav"}, listDir(t, dir))

	for index, sample := range samples {
		assert.Equal(t, filepath.Join(dir, staging.SampleName(index)), paths[index])

		data, readErr := os.ReadFile(paths[index])
		require.NoError(t, readErr)
		assert.Equal(t, sample, data)
	}
}

func TestStage_RestageOverwritesPreviousSet(t *testing.T) {
	t.Parallel()

	stager := newStager(t)

	_, err := stager.Stage("custom", [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")})
	require.NoError(t, err)

	_, err = stager.Stage("custom", [][]byte{[]byte("x"), []byte("y")})
	require.NoError(t, err)

	dir, err := stager.Dir("custom")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.wav", "1.wav"}, listDir(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, "0.wav"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestStage_VoicesAreIsolated(t *testing.T) {
	t.Parallel()

	stager := newStager(t)

	_, err := stager.Stage("voice-a", [][]byte{[]byte("a0"), []byte("a1")})
	require.NoError(t, err)

	_, err = stager.Stage("voice-b", [][]byte{[]byte("b0"), []byte("b1"), []byte("b2")})
	require.NoError(t, err)

	dirA, err := stager.Dir("voice-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.wav", "1.wav"}, listDir(t, dirA))
}

func TestStage_Errors(t *testing.T) {
	t.Parallel()

	stager := newStager(t)

	_, err := stager.Stage("custom", nil)
	require.ErrorIs(t, err, staging.ErrNoSamples)

	_, err = stager.Stage("", [][]byte{[]byte("a")})
	require.ErrorIs(t, err, staging.ErrVoiceIDEmpty)

	for _, voiceID := range []string{"..", ".", "../escape", "a/b", `a\b`} {
		_, err = stager.Stage(voiceID, [][]byte{[]byte("a")})
		require.ErrorIs(t, err, staging.ErrVoiceIDInvalid, voiceID)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	stager := newStager(t)

	_, err := stager.Stage("custom", [][]byte{[]byte("a"), []byte("b")})
	require.NoError(t, err)

	require.NoError(t, stager.Remove("custom"))

	dir, err := stager.Dir("custom")
	require.NoError(t, err)
	assert.NoDirExists(t, dir)

	require.NoError(t, stager.Remove("never-staged"))
}
