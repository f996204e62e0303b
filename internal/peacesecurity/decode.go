package peacesecurity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func decodeMetadata(data []byte) ([]Metadata, error) {
	var metas []Metadata
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("decode metadata: empty metadata list")
	}
	return metas, nil
}

// decodeTable decodes a JSON list of flat objects. Numbers are kept as
// json.Number so integer columns can be told apart from decimals.
func decodeTable(data []byte) (*Table, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	table := &Table{Rows: make([]map[string]any, 0, len(raws))}
	for i, raw := range raws {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()

		row := map[string]any{}
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		if i == 0 {
			headers, err := objectKeys(raw)
			if err != nil {
				return nil, fmt.Errorf("decode row %d: %w", i, err)
			}
			table.Headers = headers
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	seen := map[string]struct{}{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}

		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}
