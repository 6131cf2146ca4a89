// Package embed produces title embedding vectors for semantic similarity
// blending.
package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Provider turns record titles into embedding vectors. Implementations must
// return one vector per input text, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// GeminiProvider embeds titles through the Gemini embedding API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider backed by the Gemini API.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embed: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// batchSize is the per-request content cap of the embedding endpoint.
const batchSize = 100

// Embed returns one vector per text, preserving order. Requests are batched
// to stay under the endpoint's per-call content limit.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, &genai.Content{
				Parts: []*genai.Part{{Text: t}},
			})
		}

		resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("embed: gemini embed content: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embed: gemini returned %d vectors for %d texts", len(resp.Embeddings), end-start)
		}

		for _, e := range resp.Embeddings {
			vec := make([]float64, len(e.Values))
			for i, v := range e.Values {
				vec[i] = float64(v)
			}
			out = append(out, vec)
		}
	}

	return out, nil
}
