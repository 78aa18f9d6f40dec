package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/platform/openai"
)

const embedInputMaxLen = 8000

// EmbeddingService adapts the OpenAI client to the single-text embedding
// surface discovery consumes. Long inputs are truncated rather than rejected.
type EmbeddingService struct {
	client openai.Client
	log    *logger.Logger
}

// NewEmbeddingService returns nil when no client is configured, which the
// discovery engine reads as "no semantic signal available".
func NewEmbeddingService(client openai.Client, baseLog *logger.Logger) *EmbeddingService {
	if client == nil {
		return nil
	}
	return &EmbeddingService{client: client, log: baseLog.With("service", "EmbeddingService")}
}

func (s *EmbeddingService) VectorFor(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	// Truncate on rune boundaries; cutting a byte index can split a UTF-8
	// sequence and send the provider invalid text.
	if runes := []rune(text); len(runes) > embedInputMaxLen {
		text = string(runes[:embedInputMaxLen])
	}
	vectors, err := s.client.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}
