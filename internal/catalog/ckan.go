package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CKANConfig configures access to a CKAN action API such as HDX.
type CKANConfig struct {
	Site      string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// CKANClient implements Client against the CKAN action API.
type CKANClient struct {
	rc *resty.Client
}

// NewCKANClient builds a client for the site's /api/3/action endpoints.
func NewCKANClient(cfg CKANConfig) *CKANClient {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Site, "/")+"/api/3/action").
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	if cfg.APIKey != "" {
		rc.SetHeader("Authorization", cfg.APIKey)
	}
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	return &CKANClient{rc: rc}
}

// APIError is an unsuccessful CKAN action response.
type APIError struct {
	Action     string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: %s failed (%d %s): %s", e.Action, e.StatusCode, e.Type, e.Message)
}

type ckanResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   map[string]any  `json:"error"`
}

type ckanResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ckanPackage struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Resources []ckanResource `json:"resources"`
}

type ckanShowcase struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *CKANClient) action(ctx context.Context, name string, payload any, out any) error {
	resp, err := c.rc.R().SetContext(ctx).SetBody(payload).Post("/" + name)
	if err != nil {
		return fmt.Errorf("catalog: %s: %w", name, err)
	}
	return decodeAction(name, resp, out)
}

func (c *CKANClient) upload(ctx context.Context, name string, fields map[string]string, path string, out any) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetMultipartFormData(fields).
		SetFile("upload", path).
		Post("/" + name)
	if err != nil {
		return fmt.Errorf("catalog: %s: %w", name, err)
	}
	return decodeAction(name, resp, out)
}

func decodeAction(name string, resp *resty.Response, out any) error {
	var body ckanResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("catalog: %s: status %d: %w", name, resp.StatusCode(), err)
	}

	if !body.Success {
		apiErr := &APIError{Action: name, StatusCode: resp.StatusCode()}
		apiErr.Type, apiErr.Message = describeError(body.Error)
		if apiErr.Type == "Not Found Error" {
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
		}
		return apiErr
	}

	if out == nil || len(body.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Result, out); err != nil {
		return fmt.Errorf("catalog: %s: decode result: %w", name, err)
	}
	return nil
}

func describeError(fields map[string]any) (string, string) {
	typ, _ := fields["__type"].(string)
	if msg, ok := fields["message"].(string); ok {
		return typ, msg
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "__type" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, fields[k]))
	}
	return typ, strings.Join(parts, "; ")
}

// CreateOrUpdateDataset patches the dataset when its name exists and creates it
// otherwise, then uploads every resource file.
func (c *CKANClient) CreateOrUpdateDataset(ctx context.Context, ds *Dataset, opts CreateOptions) (string, error) {
	if err := ds.Validate(); err != nil {
		return "", err
	}
	payload, err := datasetPayload(ds, opts)
	if err != nil {
		return "", err
	}

	var existing ckanPackage
	err = c.action(ctx, "package_show", map[string]string{"id": ds.Name}, &existing)
	switch {
	case err == nil:
		payload["id"] = existing.ID
		log.Printf("INFO: catalog: updating dataset %s (%s)", ds.Name, existing.ID)
	case errors.Is(err, ErrNotFound):
		log.Printf("INFO: catalog: creating dataset %s", ds.Name)
	default:
		return "", err
	}

	var pkg ckanPackage
	if existing.ID != "" {
		err = c.action(ctx, "package_patch", payload, &pkg)
	} else {
		err = c.action(ctx, "package_create", payload, &pkg)
	}
	if err != nil {
		return "", err
	}

	current := make(map[string]string, len(existing.Resources))
	for _, r := range existing.Resources {
		current[r.Name] = r.ID
	}

	ours := make(map[string]struct{}, len(ds.Resources))
	for _, r := range ds.Resources {
		ours[r.Name] = struct{}{}
		fields := map[string]string{
			"package_id":  pkg.ID,
			"name":        r.Name,
			"description": r.Description,
			"format":      r.Format,
		}
		action := "resource_create"
		if id, ok := current[r.Name]; ok {
			fields["id"] = id
			action = "resource_update"
		}
		if err := c.upload(ctx, action, fields, r.Path, nil); err != nil {
			return "", err
		}
	}

	if opts.RemoveAdditionalResources {
		for _, r := range existing.Resources {
			if _, ok := ours[r.Name]; ok {
				continue
			}
			log.Printf("INFO: catalog: removing resource %s from %s", r.Name, ds.Name)
			if err := c.action(ctx, "resource_delete", map[string]string{"id": r.ID}, nil); err != nil {
				return "", err
			}
		}
	}

	return pkg.ID, nil
}

// CreateOrUpdateShowcase writes the showcase through the showcase extension.
func (c *CKANClient) CreateOrUpdateShowcase(ctx context.Context, sc *Showcase) (string, error) {
	if err := sc.Validate(); err != nil {
		return "", err
	}
	payload := showcasePayload(sc)

	var existing ckanShowcase
	err := c.action(ctx, "ckanext_showcase_show", map[string]string{"id": sc.Name}, &existing)
	action := "ckanext_showcase_update"
	switch {
	case err == nil:
		payload["id"] = existing.ID
	case errors.Is(err, ErrNotFound):
		action = "ckanext_showcase_create"
	default:
		return "", err
	}

	var created ckanShowcase
	if err := c.action(ctx, action, payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// AddDatasetToShowcase links the dataset; an existing link is not an error.
func (c *CKANClient) AddDatasetToShowcase(ctx context.Context, showcaseID, datasetID string) error {
	err := c.action(ctx, "ckanext_showcase_package_association_create", map[string]string{
		"showcase_id": showcaseID,
		"package_id":  datasetID,
	}, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Type == "Validation Error" && strings.Contains(apiErr.Message, "already") {
		return nil
	}
	return err
}
