package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCKAN is a minimal in-memory CKAN action API.
type fakeCKAN struct {
	t *testing.T

	mu        sync.Mutex
	calls     []string
	packages  map[string]ckanPackage
	payloads  map[string]map[string]any
	uploads   map[string]string
	deleted   []string
	showcases map[string]string
	links     map[string]bool
}

func newFakeCKAN(t *testing.T) *fakeCKAN {
	return &fakeCKAN{
		t:         t,
		packages:  map[string]ckanPackage{},
		payloads:  map[string]map[string]any{},
		uploads:   map[string]string{},
		showcases: map[string]string{},
		links:     map[string]bool{},
	}
}

func (f *fakeCKAN) reply(w http.ResponseWriter, status int, result any, ckanErr map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": ckanErr == nil,
		"result":  result,
		"error":   ckanErr,
	})
}

func (f *fakeCKAN) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, "secret-key", r.Header.Get("Authorization"))
	action := strings.TrimPrefix(r.URL.Path, "/api/3/action/")
	f.calls = append(f.calls, action)

	if strings.HasPrefix(action, "resource_") && action != "resource_delete" {
		require.NoError(f.t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("upload")
		require.NoError(f.t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(f.t, err)
		f.uploads[r.FormValue("name")] = string(content)
		f.reply(w, http.StatusOK, map[string]string{"id": "res-" + r.FormValue("name")}, nil)
		return
	}

	var body map[string]any
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

	switch action {
	case "package_show":
		pkg, ok := f.packages[body["id"].(string)]
		if !ok {
			f.reply(w, http.StatusNotFound, nil, map[string]any{"__type": "Not Found Error", "message": "Not found"})
			return
		}
		f.reply(w, http.StatusOK, pkg, nil)
	case "package_create", "package_patch":
		name := body["name"].(string)
		pkg, ok := f.packages[name]
		if !ok {
			pkg = ckanPackage{ID: "pkg-" + name, Name: name}
			f.packages[name] = pkg
		}
		f.payloads[name] = body
		f.reply(w, http.StatusOK, pkg, nil)
	case "resource_delete":
		f.deleted = append(f.deleted, body["id"].(string))
		f.reply(w, http.StatusOK, nil, nil)
	case "ckanext_showcase_show":
		id, ok := f.showcases[body["id"].(string)]
		if !ok {
			f.reply(w, http.StatusNotFound, nil, map[string]any{"__type": "Not Found Error", "message": "Not found"})
			return
		}
		f.reply(w, http.StatusOK, ckanShowcase{ID: id}, nil)
	case "ckanext_showcase_create", "ckanext_showcase_update":
		name := body["name"].(string)
		f.showcases[name] = "sc-" + name
		f.reply(w, http.StatusOK, ckanShowcase{ID: "sc-" + name, Name: name}, nil)
	case "ckanext_showcase_package_association_create":
		key := body["showcase_id"].(string) + "|" + body["package_id"].(string)
		if f.links[key] {
			f.reply(w, http.StatusConflict, nil, map[string]any{"__type": "Validation Error", "message": "The dataset is already in the showcase"})
			return
		}
		f.links[key] = true
		f.reply(w, http.StatusOK, nil, nil)
	default:
		f.reply(w, http.StatusBadRequest, nil, map[string]any{"__type": "Bad Request", "message": action})
	}
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dppa-scres.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCKANClientCreatesDataset(t *testing.T) {
	fake := newFakeCKAN(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewCKANClient(CKANConfig{Site: srv.URL + "/", APIKey: "secret-key", UserAgent: "test"})

	ds := validDataset(t)
	ds.Resources[0].Path = writeCSV(t, "a,b\n1,2\n")
	ds.ApplyDefaults(map[string]any{"license_id": "cc-by-igo"})

	id, err := client.CreateOrUpdateDataset(context.Background(), ds, CreateOptions{
		RemoveAdditionalResources: true,
		UpdatedByScript:           "HDX Scraper: Peacekeeping",
		Batch:                     "batch-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pkg-dppa-scres", id)

	assert.Equal(t, []string{"package_show", "package_create", "resource_create"}, fake.calls)
	payload := fake.payloads["dppa-scres"]
	assert.Equal(t, "-2", payload["data_update_frequency"])
	assert.Equal(t, "[1946-01-17T00:00:00 TO *]", payload["dataset_date"])
	assert.Equal(t, "batch-1", payload["batch"])
	assert.Equal(t, "cc-by-igo", payload["license_id"])
	assert.Equal(t, "0", payload["subnational"])
	assert.Equal(t, "a,b\n1,2\n", fake.uploads["dppa-scres.csv"])
}

func TestCKANClientUpdatesDatasetAndRemovesOtherResources(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.packages["dppa-scres"] = ckanPackage{
		ID:   "pkg-existing",
		Name: "dppa-scres",
		Resources: []ckanResource{
			{ID: "r1", Name: "dppa-scres.csv"},
			{ID: "r2", Name: "old.xlsx"},
		},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewCKANClient(CKANConfig{Site: srv.URL, APIKey: "secret-key"})
	ds := validDataset(t)
	ds.Resources[0].Path = writeCSV(t, "x\n")

	id, err := client.CreateOrUpdateDataset(context.Background(), ds, CreateOptions{RemoveAdditionalResources: true})
	require.NoError(t, err)
	assert.Equal(t, "pkg-existing", id)
	assert.Equal(t, []string{"package_show", "package_patch", "resource_update", "resource_delete"}, fake.calls)
	assert.Equal(t, "pkg-existing", fake.payloads["dppa-scres"]["id"])
	assert.Equal(t, []string{"r2"}, fake.deleted)
}

func TestCKANClientShowcase(t *testing.T) {
	fake := newFakeCKAN(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewCKANClient(CKANConfig{Site: srv.URL, APIKey: "secret-key"})
	sc := &Showcase{
		Name:     "dppa-scres-showcase",
		Title:    "Peace and Security Pillar: Security Council Resolutions Showcase",
		URL:      "https://example.org/dashboard",
		ImageURL: "https://example.org/view_dashboard.jpg",
		Tags:     []string{"peacekeeping"},
	}

	id, err := client.CreateOrUpdateShowcase(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "sc-dppa-scres-showcase", id)

	require.NoError(t, client.AddDatasetToShowcase(context.Background(), id, "pkg-1"))
	// Linking twice is tolerated.
	require.NoError(t, client.AddDatasetToShowcase(context.Background(), id, "pkg-1"))

	_, err = client.CreateOrUpdateShowcase(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ckanext_showcase_show",
		"ckanext_showcase_create",
		"ckanext_showcase_package_association_create",
		"ckanext_showcase_package_association_create",
		"ckanext_showcase_show",
		"ckanext_showcase_update",
	}, fake.calls)
}

func TestCKANClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success": false, "error": {"__type": "Authorization Error", "message": "Access denied"}}`))
	}))
	defer srv.Close()

	client := NewCKANClient(CKANConfig{Site: srv.URL})
	_, err := client.CreateOrUpdateShowcase(context.Background(), &Showcase{Name: "ab", Title: "T", URL: "https://example.org"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Authorization Error", apiErr.Type)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "Access denied")
}
