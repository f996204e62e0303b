package peacesecurity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/catalog"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/common"
)

var (
	// ErrMissingStartRange means the metadata has no Start Range, so no
	// reference period can be set and the dataset is skipped.
	ErrMissingStartRange = errors.New("start date missing")
	// ErrNoRows means the dataset has no rows to publish.
	ErrNoRows = errors.New("dataset has no rows")
	// ErrInvalidName means the catalog name derived for the dataset is not
	// accepted by the catalog.
	ErrInvalidName = errors.New("invalid catalog name")
)

// IsSkip reports whether err only affects a single dataset.
func IsSkip(err error) bool {
	return errors.Is(err, ErrMissingStartRange) ||
		errors.Is(err, ErrNoRows) ||
		errors.Is(err, ErrInvalidName)
}

// GenerateDatasetAndShowcase builds the catalog dataset for a dataset fetched
// by GetData, writes its CSV resource, and builds a showcase when the
// metadata carries a visualization link. The showcase is nil otherwise.
func (s *Scraper) GenerateDatasetAndShowcase(name string) (*catalog.Dataset, *catalog.Showcase, error) {
	table, ok := s.data[name]
	if !ok {
		return nil, nil, fmt.Errorf("dataset %s was not fetched", name)
	}
	meta := s.metadata[name]

	catalogName := s.cfg.DatasetNames[name]
	if catalogName == "" {
		catalogName = string(meta.DatasetID)
	}

	slugName := common.Slugify(catalogName)
	if !catalog.ValidName(slugName) {
		log.Printf("ERROR: Catalog name %q for %s is not valid", slugName, name)
		return nil, nil, fmt.Errorf("%s: %q: %w", name, slugName, ErrInvalidName)
	}

	ds := catalog.NewDataset(slugName, TitlePrefix+meta.Name)
	ds.SetMaintainer(MaintainerID)
	ds.SetOrganization(OrganizationID)
	ds.SetExpectedUpdateFrequency(normalizeUpdateFrequency(meta.UpdateFrequency))
	ds.SetSubnational(false)
	ds.AddOtherLocation(WorldLocation)
	ds.Notes = meta.Description

	resource := catalog.Resource{
		Name:        strings.ToLower(name) + ".csv",
		Description: "",
		Format:      "csv",
	}

	tags := collectTags(meta.Tags)
	ds.AddTags(tags)

	start, end := string(meta.StartRange), string(meta.EndRange)
	ongoing := end == ""
	if start == "" {
		log.Printf("ERROR: Start date missing for %s", name)
		return nil, nil, fmt.Errorf("%s: %w", name, ErrMissingStartRange)
	}
	if err := ds.SetReferencePeriod(start, end, ongoing); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	if len(table.Rows) == 0 {
		log.Printf("ERROR: No rows for %s", name)
		return nil, nil, fmt.Errorf("%s: %w", name, ErrNoRows)
	}

	coerceDateColumns(table)

	if _, err := ds.GenerateResourceFromRows(s.folder, resource, table.Headers, table.Rows); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	if meta.VisualizationLink == "" {
		return ds, nil, nil
	}

	showcase := &catalog.Showcase{
		Name:     common.Slugify(name) + "-showcase",
		Title:    ds.Title + " Showcase",
		Notes:    ds.Notes,
		URL:      showcaseURL(string(meta.VisualizationLink)),
		ImageURL: ShowcaseImageURL,
	}
	showcase.AddTags(tags)

	if err := showcase.Validate(); err != nil {
		log.Printf("ERROR: Dropping showcase for %s: %v", name, err)
		return ds, nil, nil
	}

	return ds, showcase, nil
}

// showcaseURL adds https:// to links given without a scheme.
func showcaseURL(link string) string {
	if strings.Contains(link, "://") {
		return link
	}
	return "https://" + strings.TrimPrefix(link, "//")
}

func normalizeUpdateFrequency(freq string) string {
	if strings.ToLower(freq) == "ad hoc" {
		return "adhoc"
	}
	return freq
}

// collectTags returns the default tags plus the lowercased metadata tags,
// unique and sorted.
func collectTags(metaTags []Tag) []string {
	seen := make(map[string]struct{}, len(DefaultTags)+len(metaTags))
	for _, t := range DefaultTags {
		seen[t] = struct{}{}
	}
	for _, t := range metaTags {
		seen[strings.ToLower(t.Tag)] = struct{}{}
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// coerceDateColumns rewrites integer epoch values in date columns as
// YYYY-MM-DD. A column is a date column when its header mentions "date" and
// the first row holds an integer in it.
func coerceDateColumns(table *Table) {
	if len(table.Rows) == 0 {
		return
	}

	first := table.Rows[0]
	var dateHeaders []string
	for _, h := range table.Headers {
		if !common.HasAnyFold(h, "date") {
			continue
		}
		if _, ok := integerValue(first[h]); ok {
			dateHeaders = append(dateHeaders, h)
		}
	}

	for _, row := range table.Rows {
		for _, h := range dateHeaders {
			n, ok := integerValue(row[h])
			if !ok || n == 0 {
				continue
			}
			row[h] = common.EpochToTime(n).Format("2006-01-02")
		}
	}
}

func integerValue(v any) (int64, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if strings.ContainsAny(num.String(), ".eE") {
		return 0, false
	}
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
