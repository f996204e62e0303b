package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DryRunClient implements Client by writing records as JSON files under a
// local folder instead of calling the catalog.
type DryRunClient struct {
	dir string

	mu    sync.Mutex
	ids   map[string]string
	links map[string][]string
}

// NewDryRunClient creates a client writing into dir.
func NewDryRunClient(dir string) (*DryRunClient, error) {
	for _, sub := range []string{"datasets", "showcases"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create dry run folder: %w", err)
		}
	}
	return &DryRunClient{
		dir:   dir,
		ids:   make(map[string]string),
		links: make(map[string][]string),
	}, nil
}

func (c *DryRunClient) idFor(kind, name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := kind + "/" + name
	if id, ok := c.ids[key]; ok {
		return id
	}
	id := uuid.NewString()
	c.ids[key] = id
	return id
}

func (c *DryRunClient) write(kind, name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(c.dir, kind, name+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("dry run: write %s: %w", path, err)
	}
	log.Printf("INFO: catalog: dry run wrote %s", path)
	return nil
}

// CreateOrUpdateDataset validates the dataset and writes its package payload.
func (c *DryRunClient) CreateOrUpdateDataset(_ context.Context, ds *Dataset, opts CreateOptions) (string, error) {
	if err := ds.Validate(); err != nil {
		return "", err
	}
	payload, err := datasetPayload(ds, opts)
	if err != nil {
		return "", err
	}

	id := c.idFor("datasets", ds.Name)
	payload["id"] = id

	resources := make([]map[string]string, 0, len(ds.Resources))
	for _, r := range ds.Resources {
		resources = append(resources, map[string]string{
			"name":        r.Name,
			"description": r.Description,
			"format":      r.Format,
			"path":        r.Path,
		})
	}
	payload["resources"] = resources

	return id, c.write("datasets", ds.Name, payload)
}

// CreateOrUpdateShowcase validates the showcase and writes its payload.
func (c *DryRunClient) CreateOrUpdateShowcase(_ context.Context, sc *Showcase) (string, error) {
	if err := sc.Validate(); err != nil {
		return "", err
	}
	payload := showcasePayload(sc)

	id := c.idFor("showcases", sc.Name)
	payload["id"] = id

	return id, c.write("showcases", sc.Name, payload)
}

// AddDatasetToShowcase records the link in memory.
func (c *DryRunClient) AddDatasetToShowcase(_ context.Context, showcaseID, datasetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.links[showcaseID] {
		if id == datasetID {
			return nil
		}
	}
	c.links[showcaseID] = append(c.links[showcaseID], datasetID)
	return nil
}

// Links returns the datasets linked to a showcase.
func (c *DryRunClient) Links(showcaseID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.links[showcaseID]...)
}
