package peacesecurity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// MaintainerID and OrganizationID identify the publisher in the catalog.
	MaintainerID   = "0d34fa8f-de81-43cc-9c1b-7053455e2e74"
	OrganizationID = "8cb62b36-c3cc-4c7a-aae7-a63e2d480ffc"

	TitlePrefix      = "Peace and Security Pillar: "
	ShowcaseImageURL = "https://raw.githubusercontent.com/OCHA-DAP/hdx-scraper-peacesecurity/main/config/view_dashboard.jpg"
	WorldLocation    = "world"
)

// DefaultTags are attached to every dataset and showcase.
var DefaultTags = []string{"complex emergency-conflict-security", "peacekeeping"}

// FlexString accepts JSON strings, numbers and null. Null decodes to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", s)
		}
		*f = FlexString(n.String())
	}
	return nil
}

// Tag is one entry of the metadata tag list.
type Tag struct {
	Tag string `json:"Tag"`
}

// Metadata describes one upstream dataset.
type Metadata struct {
	DatasetID         FlexString `json:"Dataset ID"`
	Name              string     `json:"Name"`
	UpdateFrequency   string     `json:"Update Frequency"`
	Description       string     `json:"Description"`
	Tags              []Tag      `json:"Tags"`
	StartRange        FlexString `json:"Start Range"`
	EndRange          FlexString `json:"End Range"`
	VisualizationLink FlexString `json:"Visualization Link"`
	LastUpdateDate    FlexString `json:"Last Update Date"`
}

// Table is the ordered row set of a dataset. Headers follow the key order of
// the first row.
type Table struct {
	Headers []string
	Rows    []map[string]any
}

// PublishedDataset records what a run wrote to the catalog for one dataset.
type PublishedDataset struct {
	Name        string `json:"name"`
	DatasetName string `json:"datasetName"`
	DatasetID   string `json:"datasetId"`
	ShowcaseID  string `json:"showcaseId,omitempty"`
}

// RunReport summarises one run.
type RunReport struct {
	Batch      string             `json:"batch"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
	Candidates []string           `json:"candidates"`
	Published  []PublishedDataset `json:"published"`
	Skipped    []string           `json:"skipped,omitempty"`
	// SkipReasons is the combined error of all skipped datasets.
	SkipReasons string `json:"skipReasons,omitempty"`
	Error       string `json:"error,omitempty"`
}
