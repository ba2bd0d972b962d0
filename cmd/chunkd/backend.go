package main

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/internal/server"
)

// backend is what the document commands need. It is served either by components opened in
// this process or by a running server over HTTP.
type backend interface {
	Ingest(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error)
	RegenerateOne(ctx context.Context, id string) (models.IngestStats, error)
	RegenerateBatch(ctx context.Context, ids []string, all bool, progress func(models.Progress)) (*models.BatchResult, error)
	ClearAll(ctx context.Context) (models.ClearStats, error)
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
	Details(ctx context.Context, id string) (*models.DocumentDetails, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*models.DocumentSummary, error)
	Status(ctx context.Context) (*server.StatusResponse, error)
	Close()
}

// openBackend talks to the server given by --server, or opens the database and indexes
// directly when none is given.
func openBackend(ctx context.Context) (backend, error) {
	if serverURL != "" {
		return remoteBackend{server.NewClient(serverURL, &http.Client{Timeout: 10 * time.Minute})}, nil
	}
	c, err := setup(ctx, false)
	if err != nil {
		return nil, err
	}
	return localBackend{c}, nil
}

type localBackend struct {
	*Components
}

func (l localBackend) Ingest(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error) {
	return l.Indexer.Ingest(ctx, input)
}

func (l localBackend) RegenerateOne(ctx context.Context, id string) (models.IngestStats, error) {
	return l.Indexer.RegenerateOne(ctx, id)
}

func (l localBackend) RegenerateBatch(ctx context.Context, ids []string, all bool, progress func(models.Progress)) (*models.BatchResult, error) {
	if all {
		return l.Indexer.RegenerateAll(ctx, progress)
	}
	return l.Indexer.RegenerateMany(ctx, ids, progress), nil
}

func (l localBackend) ClearAll(ctx context.Context) (models.ClearStats, error) {
	return l.Indexer.ClearAll(ctx)
}

func (l localBackend) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	return l.Engine.Search(ctx, query)
}

func (l localBackend) Details(ctx context.Context, id string) (*models.DocumentDetails, error) {
	return l.Indexer.Details(ctx, id)
}

func (l localBackend) Delete(ctx context.Context, id string) error {
	return l.Indexer.Delete(ctx, id)
}

func (l localBackend) List(ctx context.Context, offset, limit int) ([]*models.DocumentSummary, error) {
	return l.Indexer.List(ctx, offset, limit)
}

func (l localBackend) Status(ctx context.Context) (*server.StatusResponse, error) {
	return server.CollectStatus(ctx, l.Indexer, l.Config, l.Logger)
}

type remoteBackend struct {
	*server.Client
}

func (remoteBackend) Close() {}

// watchServerURL returns --server, or the configured listen address when it is not set.
func watchServerURL() (string, error) {
	if serverURL != "" {
		return serverURL, nil
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return "", err
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)), nil
}
