package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the catalog has no record with the requested id or name.
var ErrNotFound = errors.New("catalog record not found")

// CreateOptions controls how a dataset is written to the catalog.
type CreateOptions struct {
	// RemoveAdditionalResources deletes resources not produced by this run.
	RemoveAdditionalResources bool
	UpdatedByScript           string
	Batch                     string
}

// Client abstracts the catalog service (HDX/CKAN or a local dry run).
type Client interface {
	// CreateOrUpdateDataset writes the dataset and uploads its resources,
	// returning the catalog id of the dataset.
	CreateOrUpdateDataset(ctx context.Context, ds *Dataset, opts CreateOptions) (string, error)
	// CreateOrUpdateShowcase writes the showcase and returns its catalog id.
	CreateOrUpdateShowcase(ctx context.Context, sc *Showcase) (string, error)
	// AddDatasetToShowcase links a dataset to a showcase.
	AddDatasetToShowcase(ctx context.Context, showcaseID, datasetID string) error
}

// datasetPayload builds the package fields shared by every client.
func datasetPayload(ds *Dataset, opts CreateOptions) (map[string]any, error) {
	freq, err := UpdateFrequencyCode(ds.UpdateFrequency)
	if err != nil {
		return nil, err
	}

	payload := make(map[string]any, len(ds.Extra)+16)
	for k, v := range ds.Extra {
		payload[k] = v
	}

	subnational := "0"
	if ds.Subnational {
		subnational = "1"
	}

	groups := make([]map[string]string, 0, len(ds.Locations))
	for _, loc := range ds.Locations {
		groups = append(groups, map[string]string{"name": loc})
	}

	payload["name"] = ds.Name
	payload["title"] = ds.Title
	payload["notes"] = ds.Notes
	payload["maintainer"] = ds.Maintainer
	payload["owner_org"] = ds.OwnerOrg
	payload["data_update_frequency"] = freq
	payload["subnational"] = subnational
	payload["groups"] = groups
	payload["tags"] = tagObjects(ds.Tags)
	payload["dataset_date"] = ds.ReferencePeriod.String()
	if opts.UpdatedByScript != "" {
		payload["updated_by_script"] = opts.UpdatedByScript
	}
	if opts.Batch != "" {
		payload["batch"] = opts.Batch
	}

	return payload, nil
}

func showcasePayload(sc *Showcase) map[string]any {
	return map[string]any{
		"name":      sc.Name,
		"title":     sc.Title,
		"notes":     sc.Notes,
		"url":       sc.URL,
		"image_url": sc.ImageURL,
		"tags":      tagObjects(sc.Tags),
	}
}

func tagObjects(tags []string) []map[string]string {
	out := make([]map[string]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, map[string]string{"name": t})
	}
	return out
}
