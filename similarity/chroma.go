package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"reviewguard/types"
)

// Chroma wraps the Chroma vector database REST API as a review similarity
// index. Chroma v2 expects client-supplied embeddings, so every call runs
// texts through the configured EmbeddingsProvider first.
type Chroma struct {
	baseURL        string
	tenant         string
	database       string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	embedder       EmbeddingsProvider
}

// ChromaConfig holds configuration for the Chroma connection.
type ChromaConfig struct {
	Host           string
	Port           int
	CollectionName string
}

// ReviewDocument is one review stored in the index.
type ReviewDocument struct {
	ID       string
	Text     string
	Username string
	Rating   float64
	Product  string
}

type queryResults struct {
	IDs       [][]string                 `json:"ids"`
	Distances [][]float64                `json:"distances"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Documents [][]string                 `json:"documents"`
}

// NewChroma connects to Chroma and gets or creates the review collection.
func NewChroma(config ChromaConfig, embedder EmbeddingsProvider) (*Chroma, error) {
	if embedder == nil {
		return nil, fmt.Errorf("no embeddings provider configured. Set COHERE_API_KEY, OPENAI_API_KEY or EMBED_SERVICE_URL to enable client-side embeddings required by Chroma v2")
	}

	c := &Chroma{
		baseURL:        fmt.Sprintf("http://%s:%d/api/v2", config.Host, config.Port),
		tenant:         "default_tenant",
		database:       "default_database",
		collectionName: config.CollectionName,
		httpClient:     &http.Client{},
		embedder:       embedder,
	}
	log.Printf("Using embeddings provider: %s", embedder.ModelName())

	collectionID, err := c.getOrCreateCollection(config.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}
	c.collectionID = collectionID
	return c, nil
}

func (c *Chroma) getOrCreateCollection(name string) (string, error) {
	url := fmt.Sprintf("%s/tenants/%s/databases/%s/collections/%s", c.baseURL, c.tenant, c.database, name)
	resp, err := c.httpClient.Get(url)
	if err == nil && resp.StatusCode == http.StatusOK {
		defer resp.Body.Close()
		var result map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return "", err
		}
		log.Printf("Using existing collection: %s", name)
		id, ok := result["id"].(string)
		if !ok {
			return "", fmt.Errorf("collection response missing id")
		}
		return id, nil
	}
	if resp != nil {
		resp.Body.Close()
	}

	log.Printf("Creating new collection: %s", name)
	createURL := fmt.Sprintf("%s/tenants/%s/databases/%s/collections", c.baseURL, c.tenant, c.database)
	payload := map[string]interface{}{
		"name": name,
		"metadata": map[string]interface{}{
			"description": "review authenticity similarity collection",
		},
		"get_or_create": true,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	resp, err = c.httpClient.Post(createURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	id, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("create collection response missing id: %s", string(body))
	}
	return id, nil
}

func (c *Chroma) collectionURL() string {
	return fmt.Sprintf("%s/tenants/%s/databases/%s/collections/%s", c.baseURL, c.tenant, c.database, c.collectionID)
}

// NearestNeighbors returns the top-n stored reviews closest to text.
func (c *Chroma) NearestNeighbors(ctx context.Context, text string, n int) ([]Neighbor, error) {
	if n <= 0 {
		return []Neighbor{}, nil
	}

	embs, err := c.embedder.EmbedTexts([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embeddings: %w", err)
	}

	payload := map[string]interface{}{
		"n_results":        n,
		"query_embeddings": embs,
		"include":          []string{"metadatas", "documents", "distances"},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL()+"/query", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to query collection: %s", string(body))
	}

	var result queryResults
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return flattenResults(&result), nil
}

func flattenResults(result *queryResults) []Neighbor {
	if len(result.Distances) == 0 || len(result.Distances[0]) == 0 {
		return []Neighbor{}
	}

	neighbors := make([]Neighbor, 0, len(result.Distances[0]))
	for i, distance := range result.Distances[0] {
		n := Neighbor{Similarity: 1 - distance}
		if len(result.IDs) > 0 && len(result.IDs[0]) > i {
			n.ID = result.IDs[0][i]
		}
		if len(result.Documents) > 0 && len(result.Documents[0]) > i {
			n.Text = result.Documents[0][i]
		}
		if len(result.Metadatas) > 0 && len(result.Metadatas[0]) > i {
			meta := result.Metadatas[0][i]
			if username, ok := meta["username"].(string); ok {
				n.Username = username
			}
			if rating, ok := meta["rating"].(float64); ok {
				n.Rating = rating
			}
		}
		neighbors = append(neighbors, n)
	}
	return neighbors
}

// AddReviews embeds and stores a batch of reviews in the collection.
// Used by the ingestion path so freshly stored comments become searchable.
func (c *Chroma) AddReviews(ctx context.Context, docs []ReviewDocument) error {
	if len(docs) == 0 {
		return nil
	}

	documents := make([]string, len(docs))
	metadatas := make([]map[string]interface{}, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		documents[i] = doc.Text
		metadatas[i] = map[string]interface{}{
			"username": doc.Username,
			"rating":   doc.Rating,
			"product":  doc.Product,
		}
		ids[i] = doc.ID
	}

	embs, err := c.embedder.EmbedTexts(documents)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	payload := map[string]interface{}{
		"documents":  documents,
		"metadatas":  metadatas,
		"ids":        ids,
		"embeddings": embs,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL()+"/add", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to add reviews: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to add reviews: %s", string(body))
	}

	log.Printf("Added %d reviews to similarity collection", len(docs))
	return nil
}

// AddDocuments stores scraped review metadata in the index, assigning a
// fresh id per document.
func (c *Chroma) AddDocuments(ctx context.Context, reviews []types.ReviewMetadata) error {
	docs := make([]ReviewDocument, 0, len(reviews))
	for _, r := range reviews {
		if r.Comment == "" {
			continue
		}
		docs = append(docs, ReviewDocument{
			ID:       types.NewItemID(),
			Text:     r.Comment,
			Username: r.Username,
			Rating:   r.Rating,
			Product:  r.Product,
		})
	}
	return c.AddReviews(ctx, docs)
}

// Count returns the number of reviews in the collection.
func (c *Chroma) Count() (int, error) {
	resp, err := c.httpClient.Get(c.collectionURL() + "/count")
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("failed to count reviews: %s", string(body))
	}

	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, err
	}
	return count, nil
}
