package peacesecurity

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/catalog"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/store"
)

// UpdatedByScript names this job in catalog audit fields.
const UpdatedByScript = "HDX Scraper: Peacekeeping"

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Project Config
	// Folder receives resource files and the progress file.
	Folder       string
	WhereToStart string
	// StaticDefaults are merged into every dataset before publishing.
	StaticDefaults map[string]any
}

// Service runs the fetch, transform and publish steps one dataset at a time.
type Service struct {
	retriever Retriever
	catalog   catalog.Client
	state     StateStore
	opts      ServiceOptions

	// runMu keeps runs sequential; mu guards last.
	runMu sync.Mutex
	mu    sync.RWMutex
	last  *RunReport
}

// NewService creates a new Service.
func NewService(retriever Retriever, client catalog.Client, state StateStore, opts ServiceOptions) *Service {
	return &Service{
		retriever: retriever,
		catalog:   client,
		state:     state,
		opts:      opts,
	}
}

// Run publishes every dataset that changed since the last successful run.
// Datasets without a start date or rows are skipped. Any other failure stops
// the run before the state is saved, and the saved progress lets the next run
// resume from the failed dataset.
func (s *Service) Run(ctx context.Context) (report *RunReport, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report = &RunReport{StartedAt: time.Now().UTC()}
	defer func() {
		report.FinishedAt = time.Now().UTC()
		if err != nil {
			report.Error = err.Error()
		}
		s.setLast(report)
	}()

	// WhereToStart only applies to the first run of the process.
	wheretostart := s.opts.WhereToStart
	s.opts.WhereToStart = ""

	progress, err := store.OpenProgress(s.opts.Folder, wheretostart)
	if err != nil {
		return report, err
	}
	report.Batch = progress.Batch()

	scraper := NewScraper(s.opts.Project, s.retriever, s.opts.Folder)
	pending := newPendingState(s.state)
	names, err := scraper.GetData(ctx, pending)
	if err != nil {
		return report, err
	}
	report.Candidates = names
	log.Printf("INFO: Number of datasets to upload: %d", len(names))

	updatedBy := fmt.Sprintf("%s (%s)", UpdatedByScript, report.StartedAt.Format(time.RFC3339))

	var skipped *multierror.Error
	for _, name := range progress.Remaining(names) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := progress.Mark(name); err != nil {
			return report, err
		}

		published, err := s.publish(ctx, scraper, name, report.Batch, updatedBy)
		if IsSkip(err) {
			skipped = multierror.Append(skipped, err)
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if err != nil {
			return report, err
		}
		report.Published = append(report.Published, published)
	}

	if err := progress.Done(); err != nil {
		return report, err
	}
	pending.commit()
	if err := s.state.Save(); err != nil {
		return report, fmt.Errorf("save state: %w", err)
	}

	if err := skipped.ErrorOrNil(); err != nil {
		report.SkipReasons = err.Error()
		log.Printf("ERROR: %d dataset(s) skipped: %v", len(report.Skipped), err)
	}
	log.Printf("INFO: batch %s published %d dataset(s)", report.Batch, len(report.Published))

	return report, nil
}

func (s *Service) publish(ctx context.Context, scraper *Scraper, name, batch, updatedBy string) (PublishedDataset, error) {
	ds, showcase, err := scraper.GenerateDatasetAndShowcase(name)
	if err != nil {
		return PublishedDataset{}, err
	}

	ds.ApplyDefaults(s.opts.StaticDefaults)
	// Markdown needs two trailing spaces for a line break.
	ds.Notes = strings.ReplaceAll(ds.Notes, "\n", "  \n")

	datasetID, err := s.catalog.CreateOrUpdateDataset(ctx, ds, catalog.CreateOptions{
		RemoveAdditionalResources: true,
		UpdatedByScript:           updatedBy,
		Batch:                     batch,
	})
	if err != nil {
		return PublishedDataset{}, fmt.Errorf("publish dataset %s: %w", name, err)
	}

	published := PublishedDataset{Name: name, DatasetName: ds.Name, DatasetID: datasetID}
	if showcase == nil {
		return published, nil
	}

	showcaseID, err := s.catalog.CreateOrUpdateShowcase(ctx, showcase)
	if err != nil {
		return PublishedDataset{}, fmt.Errorf("publish showcase for %s: %w", name, err)
	}
	if err := s.catalog.AddDatasetToShowcase(ctx, showcaseID, datasetID); err != nil {
		return PublishedDataset{}, fmt.Errorf("link showcase for %s: %w", name, err)
	}
	published.ShowcaseID = showcaseID

	return published, nil
}

func (s *Service) setLast(report *RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = report
}

// LastReport returns a copy of the most recent run report.
func (s *Service) LastReport() (RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return RunReport{}, false
	}
	return *s.last, true
}
