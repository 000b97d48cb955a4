package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	refs, err := Load(filepath.Join(t.TempDir(), "valid_paths.json"))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid_paths.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
	assert.Error(t, Merge(path, []string{"a"}), "a corrupt ledger is never overwritten")
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		add      []string
		want     []string
	}{
		{"new file", nil, []string{"b.glb", "a.glb"}, []string{"a.glb", "b.glb"}},
		{"union", []string{"a.glb"}, []string{"c.glb", "b.glb"}, []string{"a.glb", "b.glb", "c.glb"}},
		{"dedupe", []string{"a.glb", "a.glb"}, []string{"a.glb"}, []string{"a.glb"}},
		{"nothing added", []string{"z.glb"}, nil, []string{"z.glb"}},
		{"empty", nil, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "valid_paths.json")
			if tt.existing != nil {
				require.NoError(t, Merge(path, tt.existing))
			}
			require.NoError(t, Merge(path, tt.add))

			got, err := Load(path)
			require.NoError(t, err)
			if got == nil {
				got = []string{}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ledger mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid_paths.json")
	refs := []string{"https://h/b.glb", "a.glb"}

	require.NoError(t, Merge(path, refs))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, Merge(path, refs))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, "[\n  \"a.glb\",\n  \"https://h/b.glb\"\n]\n", string(first))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
