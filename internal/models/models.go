package models

// QueryResult is the always-well-formed answer package returned per
// question. Sources hold retrieved chunk texts truncated for display.
type QueryResult struct {
	Answer      string   `json:"answer"`
	Sources     []string `json:"sources"`
	SourceCount int      `json:"source_count"`
}

// IngestStats summarizes a successful ingestion
type IngestStats struct {
	ChunkCount      int     `json:"chunk_count"`
	AvgChunkSize    float64 `json:"avg_chunk_size"`
	TotalCharacters int     `json:"total_characters"`
	VectorCount     int     `json:"vector_count"`
}
