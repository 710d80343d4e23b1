package similarity

import "context"

// Neighbor is one stored review returned by a nearest-neighbor lookup.
// Similarity is in [0,1], derived from cosine distance as 1 - distance.
type Neighbor struct {
	ID         string
	Text       string
	Username   string
	Rating     float64
	Similarity float64
}

// Index is the read capability the pipeline consumes: given a text, the
// top-N most similar stored reviews with their scores.
type Index interface {
	NearestNeighbors(ctx context.Context, text string, n int) ([]Neighbor, error)
}
