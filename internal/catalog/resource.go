package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GenerateResourceFromRows writes rows as a CSV file named after the resource
// into folder, with headers as the column order, and attaches it to the dataset.
func (d *Dataset) GenerateResourceFromRows(folder string, resource Resource, headers []string, rows []map[string]any) (string, error) {
	if len(headers) == 0 {
		return "", fmt.Errorf("resource %s: no headers", resource.Name)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create resource folder: %w", err)
	}

	path := filepath.Join(folder, resource.Name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return "", err
	}

	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			record[i] = cellString(row[h])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	if resource.Format == "" {
		resource.Format = strings.TrimPrefix(filepath.Ext(resource.Name), ".")
	}
	resource.Path = path
	d.AddResource(resource)

	return path, nil
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}
