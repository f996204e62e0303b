package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/catalog"
)

type Client struct {
	mock.Mock
}

func (m *Client) CreateOrUpdateDataset(ctx context.Context, ds *catalog.Dataset, opts catalog.CreateOptions) (string, error) {
	args := m.Called(ctx, ds, opts)
	return args.String(0), args.Error(1)
}

func (m *Client) CreateOrUpdateShowcase(ctx context.Context, sc *catalog.Showcase) (string, error) {
	args := m.Called(ctx, sc)
	return args.String(0), args.Error(1)
}

func (m *Client) AddDatasetToShowcase(ctx context.Context, showcaseID, datasetID string) error {
	args := m.Called(ctx, showcaseID, datasetID)
	return args.Error(0)
}
