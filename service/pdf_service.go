package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/agrintel/agri-intel-be/types"
)

// PDFService handles PDF loading and chunking.
type PDFService struct {
	maxChunkSize int // Maximum size of each text chunk
	overlapSize  int // Size of overlap between chunks
}

var DefaultDocumentServiceConfig = types.DocumentServiceConfig{
	MaxChunkSize: 1000,
	OverlapSize:  200,
}

// NewPDFService creates a new PDF service with configurable chunk sizes.
func NewPDFService(config types.DocumentServiceConfig) *PDFService {
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = DefaultDocumentServiceConfig.MaxChunkSize
	}
	if config.OverlapSize <= 0 || config.OverlapSize >= config.MaxChunkSize {
		config.OverlapSize = config.MaxChunkSize / 5
	}
	return &PDFService{
		maxChunkSize: config.MaxChunkSize,
		overlapSize:  config.OverlapSize,
	}
}

// ProcessPDF reads a PDF file and returns its text as overlapping chunks with
// page metadata. Pages that yield no extractable text are skipped.
func (s *PDFService) ProcessPDF(filePath string) ([]types.DocumentChunk, error) {
	pages, err := s.extractPages(filePath)
	if err != nil {
		return nil, err
	}

	title := GetFileNameWithoutExt(filePath)
	totalPages := len(pages)

	var chunks []types.DocumentChunk
	for pageNum, text := range pages {
		text = s.cleanText(text)
		if text == "" {
			continue
		}
		metadata := types.DocumentMetadata{
			Title:      title,
			Source:     filePath,
			PageNum:    pageNum + 1,
			TotalPages: totalPages,
		}
		chunks = append(chunks, s.createChunks(text, metadata)...)
	}
	return chunks, nil
}

// extractPages returns the plain text of every page in order.
func (s *PDFService) extractPages(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("file", filePath).Msg("failed to extract page text")
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// GetFileNameWithoutExt extracts the filename without extension from a path.
func GetFileNameWithoutExt(path string) string {
	base := filepath.Base(path)
	if idx := strings.LastIndex(base, "."); idx != -1 {
		base = base[:idx]
	}
	return base
}

// createChunks splits text into overlapping chunks, preferring sentence
// boundaries and falling back to word boundaries.
func (s *PDFService) createChunks(text string, metadata types.DocumentMetadata) []types.DocumentChunk {
	textLen := len(text)
	if textLen <= s.maxChunkSize {
		return []types.DocumentChunk{{
			Content:  text,
			Page:     metadata.PageNum,
			Metadata: metadata,
		}}
	}

	var chunks []types.DocumentChunk
	currentPos := 0
	for currentPos < textLen {
		chunkEnd := currentPos + s.maxChunkSize
		if chunkEnd >= textLen {
			if chunk := strings.TrimSpace(text[currentPos:]); chunk != "" {
				chunks = append(chunks, types.DocumentChunk{
					Content:  chunk,
					Page:     metadata.PageNum,
					Metadata: metadata,
				})
			}
			break
		}

		// Find the nearest sentence end before the size limit.
		sentenceEnd := chunkEnd
		for i := chunkEnd - 1; i > currentPos; i-- {
			if text[i] == '.' || text[i] == '?' || text[i] == '!' {
				sentenceEnd = i + 1
				break
			}
		}

		// If no sentence end was found, use a word boundary.
		if sentenceEnd == chunkEnd {
			for i := chunkEnd - 1; i > currentPos; i-- {
				if text[i] == ' ' {
					sentenceEnd = i
					break
				}
			}
		}

		if chunk := strings.TrimSpace(text[currentPos:sentenceEnd]); chunk != "" {
			chunks = append(chunks, types.DocumentChunk{
				Content:  chunk,
				Page:     metadata.PageNum,
				Metadata: metadata,
			})
		}

		// Step back by the overlap, but always make forward progress.
		next := sentenceEnd - s.overlapSize
		if next <= currentPos {
			next = sentenceEnd
		}
		currentPos = next
	}

	return chunks
}

// cleanText strips control characters and collapses whitespace. The
// replacements run in a fixed order (control characters before the space
// collapse) so identical input always yields identical chunks.
func (s *PDFService) cleanText(text string) string {
	replacements := []struct{ old, new string }{
		{"\x00", ""},   // null
		{"\ufffd", ""}, // unicode replacement character
		{"\x1b", ""},   // escape
		{"\r", ""},     // carriage return
		{"\f", "\n"},   // form feed to newline
		{"  ", " "},    // double space to single space
	}
	cleaned := text
	for _, r := range replacements {
		cleaned = strings.ReplaceAll(cleaned, r.old, r.new)
	}
	return strings.TrimSpace(cleaned)
}
