package peacesecurity

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchedScraper(t *testing.T) (*Scraper, string) {
	t.Helper()
	folder := t.TempDir()
	scraper := NewScraper(testConfig(), &fixtureRetriever{}, folder)
	_, err := scraper.GetData(context.Background(), newMemState())
	require.NoError(t, err)
	return scraper, folder
}

func TestGenerateDatasetWithShowcase(t *testing.T) {
	scraper, folder := fetchedScraper(t)

	ds, showcase, err := scraper.GenerateDatasetAndShowcase("DPPA-SCRES")
	require.NoError(t, err)
	require.NotNil(t, ds)
	require.NoError(t, ds.Validate())

	assert.Equal(t, "dppa-scres", ds.Name)
	assert.Equal(t, "Peace and Security Pillar: Security Council Resolutions", ds.Title)
	assert.Equal(t, MaintainerID, ds.Maintainer)
	assert.Equal(t, OrganizationID, ds.OwnerOrg)
	assert.Equal(t, "adhoc", ds.UpdateFrequency)
	assert.False(t, ds.Subnational)
	assert.Equal(t, []string{"world"}, ds.Locations)
	assert.Equal(t, []string{"complex emergency-conflict-security", "peacekeeping", "security", "un"}, ds.Tags)

	require.NotNil(t, ds.ReferencePeriod)
	assert.True(t, ds.ReferencePeriod.Ongoing)
	assert.Equal(t, time.Date(1946, 1, 17, 0, 0, 0, 0, time.UTC), ds.ReferencePeriod.Start)

	require.Len(t, ds.Resources, 1)
	assert.Equal(t, "dppa-scres.csv", ds.Resources[0].Name)
	assert.Equal(t, "csv", ds.Resources[0].Format)

	csv, err := os.ReadFile(filepath.Join(folder, "dppa-scres.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"Resolution,Adoption Date,Topic,Votes\n"+
			"S/RES/2719,2024-01-15,Ad hoc committee,15\n"+
			"S/RES/2720,2024-01-16,Sanctions,14\n",
		string(csv))

	require.NotNil(t, showcase)
	require.NoError(t, showcase.Validate())
	assert.Equal(t, "dppa-scres-showcase", showcase.Name)
	assert.Equal(t, "Peace and Security Pillar: Security Council Resolutions Showcase", showcase.Title)
	assert.Equal(t, "https://app.powerbi.com/view?r=scres", showcase.URL)
	assert.Equal(t, ShowcaseImageURL, showcase.ImageURL)
	assert.Equal(t, ds.Tags, showcase.Tags)
}

func TestGenerateDatasetWithEndRange(t *testing.T) {
	scraper, folder := fetchedScraper(t)

	ds, showcase, err := scraper.GenerateDatasetAndShowcase("DPO-FATALITIES")
	require.NoError(t, err)
	assert.Nil(t, showcase)

	assert.Equal(t, "un-peacekeeping-fatalities", ds.Name)
	assert.Equal(t, "Monthly", ds.UpdateFrequency)
	assert.Equal(t, []string{"complex emergency-conflict-security", "fatalities", "peacekeeping"}, ds.Tags)

	require.NotNil(t, ds.ReferencePeriod)
	assert.False(t, ds.ReferencePeriod.Ongoing)
	assert.Equal(t, time.Date(1948, 6, 1, 0, 0, 0, 0, time.UTC), ds.ReferencePeriod.Start)
	assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), ds.ReferencePeriod.End)

	csv, err := os.ReadFile(filepath.Join(folder, "dpo-fatalities.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"Incident Date,Mission,Fatalities,Rate\n"+
			"2000-01-01,UNMIK,2,0.5\n"+
			"2001-01-01,UNAMSIL,1,0.25\n",
		string(csv))
}

func TestGenerateDatasetMissingStartRange(t *testing.T) {
	scraper, folder := fetchedScraper(t)

	ds, showcase, err := scraper.GenerateDatasetAndShowcase("DPPA-ELECTORAL")
	require.ErrorIs(t, err, ErrMissingStartRange)
	assert.True(t, IsSkip(err))
	assert.Nil(t, ds)
	assert.Nil(t, showcase)

	_, statErr := os.Stat(filepath.Join(folder, "dppa-electoral.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateDatasetNotFetched(t *testing.T) {
	scraper, _ := fetchedScraper(t)

	_, _, err := scraper.GenerateDatasetAndShowcase("UNKNOWN")
	require.Error(t, err)
	assert.False(t, IsSkip(err))
}

func TestGenerateDatasetNoRows(t *testing.T) {
	scraper := NewScraper(testConfig(), nil, t.TempDir())
	scraper.data["EMPTY"] = &Table{}
	scraper.metadata["EMPTY"] = Metadata{DatasetID: "EMPTY", Name: "Empty", UpdateFrequency: "Yearly", StartRange: "2020-01-01"}

	_, _, err := scraper.GenerateDatasetAndShowcase("EMPTY")
	require.ErrorIs(t, err, ErrNoRows)
	assert.True(t, IsSkip(err))
}

func TestGenerateShowcaseLinkWithoutScheme(t *testing.T) {
	scraper, _ := fetchedScraper(t)
	meta := scraper.metadata["DPPA-SCRES"]
	meta.VisualizationLink = "app.powerbi.com/view?r=x"
	scraper.metadata["DPPA-SCRES"] = meta

	ds, showcase, err := scraper.GenerateDatasetAndShowcase("DPPA-SCRES")
	require.NoError(t, err)
	require.NotNil(t, ds)
	require.NotNil(t, showcase)
	assert.Equal(t, "https://app.powerbi.com/view?r=x", showcase.URL)
	assert.NoError(t, showcase.Validate())
}

func TestGenerateDropsUnusableShowcaseLink(t *testing.T) {
	scraper, _ := fetchedScraper(t)
	meta := scraper.metadata["DPPA-SCRES"]
	meta.VisualizationLink = "dashboard link pending"
	scraper.metadata["DPPA-SCRES"] = meta

	ds, showcase, err := scraper.GenerateDatasetAndShowcase("DPPA-SCRES")
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Nil(t, showcase)
	require.Len(t, ds.Resources, 1)
}

func TestShowcaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://app.powerbi.com/view?r=x", "https://app.powerbi.com/view?r=x"},
		{"http://example.org/d", "http://example.org/d"},
		{"app.powerbi.com/view?r=x", "https://app.powerbi.com/view?r=x"},
		{"//app.powerbi.com/view", "https://app.powerbi.com/view"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, showcaseURL(tt.in), tt.in)
	}
}

func TestGenerateDatasetInvalidCatalogName(t *testing.T) {
	scraper, _ := fetchedScraper(t)
	scraper.cfg.DatasetNames = map[string]string{"DPPA-SCRES": "x"}

	ds, showcase, err := scraper.GenerateDatasetAndShowcase("DPPA-SCRES")
	require.ErrorIs(t, err, ErrInvalidName)
	assert.True(t, IsSkip(err))
	assert.Nil(t, ds)
	assert.Nil(t, showcase)
}

func TestCollectTags(t *testing.T) {
	tests := []struct {
		name string
		in   []Tag
		want []string
	}{
		{"nil", nil, []string{"complex emergency-conflict-security", "peacekeeping"}},
		{"empty", []Tag{}, []string{"complex emergency-conflict-security", "peacekeeping"}},
		{"duplicate default", []Tag{{Tag: "Peacekeeping"}}, []string{"complex emergency-conflict-security", "peacekeeping"}},
		{"extra", []Tag{{Tag: "UN"}, {Tag: "security"}}, []string{"complex emergency-conflict-security", "peacekeeping", "security", "un"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collectTags(tt.in))
		})
	}
}

func TestNormalizeUpdateFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ad Hoc", "adhoc"},
		{"ad hoc", "adhoc"},
		{"AD HOC", "adhoc"},
		{"Monthly", "Monthly"},
		{"adhoc", "adhoc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeUpdateFrequency(tt.in), tt.in)
	}
}

func TestCoerceDateColumns(t *testing.T) {
	table := &Table{
		Headers: []string{"Start Date", "Label Date", "Count", "date_ms"},
		Rows: []map[string]any{
			{"Start Date": json.Number("946684800"), "Label Date": "2020-01-01", "Count": json.Number("3"), "date_ms": json.Number("1705276800000")},
			{"Start Date": json.Number("978307200"), "Label Date": json.Number("978307200"), "Count": json.Number("4"), "date_ms": json.Number("1.5")},
			{"Start Date": nil, "Label Date": "x", "Count": json.Number("5"), "date_ms": json.Number("-1000")},
		},
	}

	coerceDateColumns(table)

	assert.Equal(t, "2000-01-01", table.Rows[0]["Start Date"])
	assert.Equal(t, "2001-01-01", table.Rows[1]["Start Date"])
	assert.Nil(t, table.Rows[2]["Start Date"])

	// First row is not an integer, so the column is left alone.
	assert.Equal(t, json.Number("978307200"), table.Rows[1]["Label Date"])

	assert.Equal(t, json.Number("3"), table.Rows[0]["Count"])

	assert.Equal(t, "2024-01-15", table.Rows[0]["date_ms"])
	assert.Equal(t, json.Number("1.5"), table.Rows[1]["date_ms"])
	assert.Equal(t, "1969-12-31", table.Rows[2]["date_ms"])
}

func TestDecodeTableKeepsKeyOrder(t *testing.T) {
	table, err := decodeTable([]byte(`[{"b": 1, "a": "x", "c": null}, {"a": "y", "b": 2.5}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, json.Number("1"), table.Rows[0]["b"])
	assert.Nil(t, table.Rows[0]["c"])
	assert.Equal(t, json.Number("2.5"), table.Rows[1]["b"])
}

func TestDecodeMetadata(t *testing.T) {
	metas, err := decodeMetadata([]byte(`[{"Dataset ID": 42, "Name": "N", "Start Range": null, "Last Update Date": " 2024-01-01 "}]`))
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, FlexString("42"), metas[0].DatasetID)
	assert.Equal(t, FlexString(""), metas[0].StartRange)
	assert.Equal(t, FlexString("2024-01-01"), metas[0].LastUpdateDate)

	_, err = decodeMetadata([]byte(`[]`))
	assert.Error(t, err)

	_, err = decodeMetadata([]byte(`{"oops": true}`))
	assert.Error(t, err)
}
