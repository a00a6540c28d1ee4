package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/chunker"
	"github.com/hajime-dev/devicekb/internal/filestore"
	"github.com/hajime-dev/devicekb/internal/model"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
	"github.com/hajime-dev/devicekb/internal/repo"
	"github.com/hajime-dev/devicekb/internal/vectorstore"
)

type DocumentService struct {
	devices  *repo.DeviceRepo
	docs     *repo.DocumentRepo
	chunker  *chunker.Chunker
	embedder ai.IEmbedder
	store    vectorstore.IStore
	files    filestore.Store
}

func NewDocumentService(devices *repo.DeviceRepo, docs *repo.DocumentRepo, ck *chunker.Chunker, embedder ai.IEmbedder, store vectorstore.IStore, files filestore.Store) *DocumentService {
	return &DocumentService{devices: devices, docs: docs, chunker: ck, embedder: embedder, store: store, files: files}
}

// IngestStats reports what the chunking and embedding passes produced for
// one document. Dropped counts chunks below the quality floor, EmbedFailed
// the ones whose embedding call failed after retries.
type IngestStats struct {
	ChunkCount  int `json:"chunk_count"`
	Dropped     int `json:"dropped"`
	EmbedFailed int `json:"embed_failed"`
}

// Ingest stores the raw file, cuts the extracted text into chunks, embeds
// them and indexes them under the device namespace. Re-uploading the same
// filename produces a new document; old chunks stay until the old document
// is deleted.
func (s *DocumentService) Ingest(ctx context.Context, deviceID, filename string, r filestore.ReadSeekCloser, size int64, text string) (*model.Document, *IngestStats, error) {
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, nil, err
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, nil, appErr.ErrInvalid
	}
	if text == "" || !utf8.ValidString(text) {
		return nil, nil, fmt.Errorf("%w: document text is empty or not valid utf-8", appErr.ErrInvalid)
	}

	doc := &model.Document{
		ID:        newID(),
		DeviceID:  device.ID,
		Filename:  filename,
		FileKey:   device.ID + "_" + newID(),
		Processed: repo.DocumentUnprocessed,
		Ctime:     time.Now().UnixMilli(),
	}
	if r != nil {
		if err := s.files.Save(ctx, doc.FileKey, r, size); err != nil {
			return nil, nil, fmt.Errorf("save source file: %w", err)
		}
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, nil, err
	}

	hints := chunker.ExtractHints(text)
	result := s.chunker.Chunk(ctx, doc.ID, device.ID, text, hints)
	entries, embedFailed := buildEntries(ctx, s.embedder, result.Chunks, filename)
	if err := s.store.Upsert(ctx, device.Namespace(), entries); err != nil {
		return nil, nil, err
	}
	if err := s.docs.MarkProcessed(ctx, doc.ID, len(entries)); err != nil {
		return nil, nil, err
	}
	doc.ChunkCount = len(entries)
	doc.Processed = repo.DocumentProcessed

	logutil.GetLogger(ctx).Info("document ingested",
		zap.String("device_id", device.ID),
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(entries)),
		zap.Int("dropped", result.Dropped),
		zap.Int("embed_failed", embedFailed))
	return doc, &IngestStats{ChunkCount: len(entries), Dropped: result.Dropped, EmbedFailed: embedFailed}, nil
}

// buildEntries embeds every chunk it can. A chunk whose embedding call
// fails after retries is skipped and counted; the rest of the document
// still gets indexed.
func buildEntries(ctx context.Context, embedder ai.IEmbedder, chunks []*model.Chunk, filename string) ([]vectorstore.Entry, int) {
	entries := make([]vectorstore.Entry, 0, len(chunks))
	failed := 0
	for _, ck := range chunks {
		values, err := embedder.Embed(ctx, ck.Content, ai.TaskTypeDocument)
		if err != nil {
			failed++
			logutil.GetLogger(ctx).Warn("chunk embedding failed, skipping chunk",
				zap.String("chunk_id", ck.ID), zap.Error(err))
			continue
		}
		entries = append(entries, vectorstore.Entry{Chunk: ck, Filename: filename, Embedding: values})
	}
	return entries, failed
}

func (s *DocumentService) ListByDevice(ctx context.Context, deviceID string) ([]model.Document, error) {
	if _, err := s.devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.docs.ListByDevice(ctx, deviceID)
}

func (s *DocumentService) Open(ctx context.Context, documentID string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, doc.FileKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, doc, nil
}

// Delete removes the document record and its chunks from the vector index.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return err
	}
	device, err := s.devices.Get(ctx, doc.DeviceID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, device.Namespace(), doc.ID); err != nil {
		return err
	}
	return s.docs.Delete(ctx, doc.ID)
}
