package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agrintel/agri-intel-be/database"
	"github.com/agrintel/agri-intel-be/types"
	"github.com/agrintel/agri-intel-be/utils"
)

// ErrNoDocuments is returned when the documents directory holds no PDF files.
// The index is not touched in that case.
var ErrNoDocuments = errors.New("no documents found in documents directory")

// DocumentLoader turns a file into chunks. Satisfied by PDFService.
type DocumentLoader interface {
	ProcessPDF(filePath string) ([]types.DocumentChunk, error)
}

// IngestService runs the offline load -> split -> embed -> store pipeline.
// Records are appended under fresh IDs on every run: re-ingesting the same
// corpus duplicates records rather than upserting. That mirrors the observed
// behavior of the system this replaces and keeps ingestion append-only.
type IngestService struct {
	documentsDir string
	loader       DocumentLoader
	embedder     Embedder
	store        database.VectorDatabase
}

func NewIngestService(
	documentsDir string,
	loader DocumentLoader,
	embedder Embedder,
	store database.VectorDatabase,
) *IngestService {
	return &IngestService{
		documentsDir: documentsDir,
		loader:       loader,
		embedder:     embedder,
		store:        store,
	}
}

// Run ingests every PDF under the documents directory and returns the number
// of records written. Any loader, embedding, or store error aborts the run;
// there is no partial-failure recovery.
func (s *IngestService) Run(ctx context.Context) (int, error) {
	files, err := utils.ListFilesWithExt(s.documentsDir, ".pdf")
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, ErrNoDocuments
	}

	total := 0
	for _, file := range files {
		n, err := s.ingestFile(ctx, file)
		if err != nil {
			return total, fmt.Errorf("ingesting %s: %w", file, err)
		}
		log.Info().Str("file", file).Int("chunks", n).Msg("ingested document")
		total += n
	}
	return total, nil
}

func (s *IngestService) ingestFile(ctx context.Context, file string) (int, error) {
	chunks, err := s.loader.ProcessPDF(file)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		log.Warn().Str("file", file).Msg("document produced no chunks")
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, err
	}

	docs := make([]database.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = database.Document{
			ID:      uuid.NewString(),
			Content: chunk.Content,
			Metadata: database.Metadata{
				Title:      chunk.Metadata.Title,
				Source:     chunk.Metadata.Source,
				Page:       chunk.Metadata.PageNum,
				TotalPages: chunk.Metadata.TotalPages,
			},
		}
	}

	if err := s.store.AddDocuments(ctx, docs, embeddings); err != nil {
		return 0, err
	}
	return len(docs), nil
}
