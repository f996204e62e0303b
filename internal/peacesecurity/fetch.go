package peacesecurity

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/common"
)

// Config holds the project configuration the scraper needs.
type Config struct {
	BaseURL  string
	Datasets []string
	// DatasetNames overrides the catalog name of a dataset; the metadata's
	// Dataset ID is used otherwise.
	DatasetNames map[string]string
}

// Scraper fetches datasets that changed since the last run and turns them
// into catalog records.
type Scraper struct {
	cfg       Config
	retriever Retriever
	folder    string

	data     map[string]*Table
	metadata map[string]Metadata
}

// NewScraper creates a Scraper writing resource files into folder.
func NewScraper(cfg Config, retriever Retriever, folder string) *Scraper {
	if cfg.BaseURL != "" && !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	return &Scraper{
		cfg:       cfg,
		retriever: retriever,
		folder:    folder,
		data:      make(map[string]*Table),
		metadata:  make(map[string]Metadata),
	}
}

// GetData downloads data and metadata for every configured dataset and keeps
// those whose Last Update Date is strictly newer than the recorded state,
// advancing the state for them. It returns the kept names, sorted.
func (s *Scraper) GetData(ctx context.Context, state State) ([]string, error) {
	for _, name := range s.cfg.Datasets {
		dataURL := fmt.Sprintf("%sdata/%s/json", s.cfg.BaseURL, name)
		metaURL := fmt.Sprintf("%smetadata/%s", s.cfg.BaseURL, name)

		rawData, err := s.retriever.DownloadJSON(ctx, dataURL)
		if err != nil {
			return nil, fmt.Errorf("download data for %s: %w", name, err)
		}
		rawMeta, err := s.retriever.DownloadJSON(ctx, metaURL)
		if err != nil {
			return nil, fmt.Errorf("download metadata for %s: %w", name, err)
		}

		metas, err := decodeMetadata(rawMeta)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		meta := metas[0]

		lastUpdate, err := common.ParseDate(string(meta.LastUpdateDate))
		if err != nil {
			return nil, fmt.Errorf("%s: last update date: %w", name, err)
		}

		previous := state.Get(name)
		if !lastUpdate.After(previous) {
			log.Printf("INFO: %s unchanged since %s", name, previous.Format("2006-01-02"))
			continue
		}

		table, err := decodeTable(rawData)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		state.Set(name, lastUpdate)
		s.data[name] = table
		s.metadata[name] = meta
	}

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
