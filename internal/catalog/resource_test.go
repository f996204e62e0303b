package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResourceFromRows(t *testing.T) {
	dir := t.TempDir()
	ds := NewDataset("dppa-scres", "T")

	rows := []map[string]any{
		{"Resolution": "S/RES/2719", "Adoption_Date": "2023-12-21", "Votes": json.Number("15"), "Vetoed": false},
		{"Resolution": "S/RES/2720, part 2", "Adoption_Date": nil, "Votes": json.Number("13.5"), "Vetoed": true},
	}
	headers := []string{"Resolution", "Adoption_Date", "Votes", "Vetoed"}

	path, err := ds.GenerateResourceFromRows(dir, Resource{Name: "dppa-scres.csv"}, headers, rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dppa-scres.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "Resolution,Adoption_Date,Votes,Vetoed\n" +
		"S/RES/2719,2023-12-21,15,false\n" +
		"\"S/RES/2720, part 2\",,13.5,true\n"
	assert.Equal(t, want, string(raw))

	require.Len(t, ds.Resources, 1)
	assert.Equal(t, "csv", ds.Resources[0].Format)
	assert.Equal(t, path, ds.Resources[0].Path)

	// Regenerating replaces the resource instead of adding a second one.
	_, err = ds.GenerateResourceFromRows(dir, Resource{Name: "dppa-scres.csv"}, headers, rows[:1])
	require.NoError(t, err)
	assert.Len(t, ds.Resources, 1)
}

func TestGenerateResourceFromRowsNeedsHeaders(t *testing.T) {
	ds := NewDataset("x", "X")
	_, err := ds.GenerateResourceFromRows(t.TempDir(), Resource{Name: "x.csv"}, nil, nil)
	assert.Error(t, err)
}
