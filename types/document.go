package types

// DocumentChunk is the retrieval unit produced by splitting a report.
type DocumentChunk struct {
	Content  string           // The actual text content
	Page     int              // Page number where the chunk is from
	Metadata DocumentMetadata // Associated metadata for the chunk
}

// DocumentMetadata carries provenance for a chunk.
type DocumentMetadata struct {
	Title      string // Title of the source document
	Source     string // Source file path
	PageNum    int    // Current page number
	TotalPages int    // Total number of pages in the document
}

// DocumentServiceConfig contains configuration options for document splitting.
type DocumentServiceConfig struct {
	MaxChunkSize int // Maximum size for text chunks
	OverlapSize  int // Size of overlap between chunks
}
