package ingestion

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/platformai/qa-agent/vector"
)

// Importer feeds documents into the vector store: fetch/read, chunk, tag
// with metadata, add.
type Importer struct {
	store   vector.Store
	client  *http.Client
	logger  *log.Logger
	size    int
	overlap int
}

func NewImporter(store vector.Store, client *http.Client, logger *log.Logger) *Importer {
	if client == nil {
		client = NewFetchClient()
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Importer{
		store:   store,
		client:  client,
		logger:  logger,
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
}

// ImportURL fetches a page, chunks its text, and stores the chunks. Returns
// the number of chunks written.
func (im *Importer) ImportURL(ctx context.Context, rawURL string) (int, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parse url: %w", err)
	}

	text, err := FetchURL(ctx, im.client, rawURL)
	if err != nil {
		return 0, err
	}
	im.logger.Printf("fetched %d chars from %s", len(text), rawURL)

	meta := map[string]any{
		"source": "url",
		"url":    rawURL,
		"host":   parsed.Host,
		"path":   parsed.Path,
	}

	return im.addChunks(ctx, text, meta)
}

// ImportFile reads a local markdown, text, or PDF document and stores its
// chunks.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	text, err := ParseDocument(path, data)
	if err != nil {
		return 0, err
	}

	meta := map[string]any{
		"source": "file",
		"path":   filepath.ToSlash(path),
	}

	return im.addChunks(ctx, text, meta)
}

// addChunks splits text with the importer's window settings and writes every
// chunk under a fresh UUID, copying the base metadata plus a chunk index.
func (im *Importer) addChunks(ctx context.Context, text string, baseMeta map[string]any) (int, error) {
	chunks := ChunkText(text, im.size, im.overlap)
	if len(chunks) == 0 {
		im.logger.Printf("document produced no chunks, nothing to store")
		return 0, nil
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		ids[i] = uuid.NewString()
		meta := make(map[string]any, len(baseMeta)+1)
		for k, v := range baseMeta {
			meta[k] = v
		}
		meta["chunk"] = i
		metadatas[i] = meta
	}

	if err := im.store.Add(ctx, ids, chunks, metadatas); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	im.logger.Printf("stored %d chunks", len(chunks))
	return len(chunks), nil
}
