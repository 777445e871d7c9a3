//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	ctx := context.Background()

	embedding, err := client.GenerateEmbedding(ctx, "Refunds are processed within five business days.")
	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)

	// A repeated call for the same text is served from the cache and must
	// return the identical vector.
	cached, err := client.GenerateEmbedding(ctx, "Refunds are processed within five business days.")
	require.NoError(t, err)
	assert.Equal(t, embedding, cached)
}
