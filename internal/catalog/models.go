package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/common"
)

// ReferencePeriod is the date range a dataset's data covers.
type ReferencePeriod struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Ongoing bool      `json:"ongoing"`
}

// String renders the period in the catalog's dataset_date syntax.
func (p ReferencePeriod) String() string {
	const layout = "2006-01-02T15:04:05"
	end := "*"
	if !p.Ongoing {
		end = p.End.Format(layout)
	}
	return fmt.Sprintf("[%s TO %s]", p.Start.Format(layout), end)
}

// Resource is a file attached to a dataset.
type Resource struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Format      string `json:"format" validate:"required"`
	// Path is the local file uploaded with the resource.
	Path string `json:"-" validate:"required"`
}

// Dataset is a catalog dataset record.
type Dataset struct {
	Name            string           `json:"name" validate:"required,max=100,ckanname"`
	Title           string           `json:"title" validate:"required"`
	Notes           string           `json:"notes"`
	Maintainer      string           `json:"maintainer" validate:"required"`
	OwnerOrg        string           `json:"owner_org" validate:"required"`
	UpdateFrequency string           `json:"update_frequency" validate:"required,updatefrequency"`
	Subnational     bool             `json:"subnational"`
	Locations       []string         `json:"locations" validate:"min=1"`
	Tags            []string         `json:"tags" validate:"min=1,dive,required"`
	ReferencePeriod *ReferencePeriod `json:"reference_period" validate:"required"`
	Resources       []Resource       `json:"resources" validate:"dive"`

	// Extra carries additional package fields such as the static defaults.
	Extra map[string]any `json:"extra,omitempty"`
}

// NewDataset creates a dataset with the given name and title.
func NewDataset(name, title string) *Dataset {
	return &Dataset{Name: name, Title: title, Extra: map[string]any{}}
}

func (d *Dataset) SetMaintainer(id string) { d.Maintainer = id }

func (d *Dataset) SetOrganization(id string) { d.OwnerOrg = id }

func (d *Dataset) SetSubnational(sub bool) { d.Subnational = sub }

// SetExpectedUpdateFrequency stores the textual frequency; it is converted to
// the catalog's day code on submission.
func (d *Dataset) SetExpectedUpdateFrequency(freq string) { d.UpdateFrequency = freq }

// AddOtherLocation adds a non-country location such as "world".
func (d *Dataset) AddOtherLocation(loc string) {
	loc = strings.ToLower(loc)
	for _, l := range d.Locations {
		if l == loc {
			return
		}
	}
	d.Locations = append(d.Locations, loc)
}

// AddTags merges tags into the dataset, keeping them unique and sorted.
func (d *Dataset) AddTags(tags []string) {
	d.Tags = mergeTags(d.Tags, tags)
}

// SetReferencePeriod parses start and end and records the covered range.
// The end is ignored when ongoing is set.
func (d *Dataset) SetReferencePeriod(start, end string, ongoing bool) error {
	s, err := common.ParseDate(start)
	if err != nil {
		return fmt.Errorf("reference period start: %w", err)
	}

	period := &ReferencePeriod{Start: startOfDay(s), Ongoing: ongoing}
	if !ongoing {
		e, err := common.ParseDate(end)
		if err != nil {
			return fmt.Errorf("reference period end: %w", err)
		}
		e = endOfDay(e)
		if e.Before(period.Start) {
			return fmt.Errorf("reference period end %s is before start %s", end, start)
		}
		period.End = e
	}

	d.ReferencePeriod = period
	return nil
}

// AddResource appends or replaces the resource with the same name.
func (d *Dataset) AddResource(r Resource) {
	for i := range d.Resources {
		if d.Resources[i].Name == r.Name {
			d.Resources[i] = r
			return
		}
	}
	d.Resources = append(d.Resources, r)
}

// ApplyDefaults copies static fields that the dataset does not set itself.
func (d *Dataset) ApplyDefaults(defaults map[string]any) {
	if d.Extra == nil {
		d.Extra = map[string]any{}
	}
	for k, v := range defaults {
		if reservedField(k) {
			if k == "notes" && d.Notes == "" {
				if s, ok := v.(string); ok {
					d.Notes = s
				}
			}
			continue
		}
		if _, ok := d.Extra[k]; !ok {
			d.Extra[k] = v
		}
	}
}

func reservedField(k string) bool {
	switch k {
	case "name", "title", "notes", "maintainer", "owner_org", "data_update_frequency",
		"subnational", "groups", "tags", "dataset_date", "resources", "id":
		return true
	}
	return false
}

// Showcase is a display record linking a visualization to a dataset.
type Showcase struct {
	Name     string   `json:"name" validate:"required,max=100,ckanname"`
	Title    string   `json:"title" validate:"required"`
	Notes    string   `json:"notes"`
	URL      string   `json:"url" validate:"required,url"`
	ImageURL string   `json:"image_url" validate:"omitempty,url"`
	Tags     []string `json:"tags"`
}

// AddTags merges tags into the showcase.
func (s *Showcase) AddTags(tags []string) {
	s.Tags = mergeTags(s.Tags, tags)
}

func mergeTags(existing, tags []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(tags))
	out := make([]string, 0, len(existing)+len(tags))
	for _, group := range [][]string{existing, tags} {
		for _, t := range group {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
