package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *fakeProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (f *fakeProvider) Chat(_ context.Context, model string, _ []Message) (string, error) {
	return "answer from " + model, nil
}

func (f *fakeProvider) Ping(context.Context) error { return nil }

func TestProviderRegistry(t *testing.T) {
	RegisterProvider("fake", func(config map[string]any) (Provider, error) {
		name, _ := config["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("name missing")
		}
		return &fakeProvider{name: name}, nil
	})

	t.Run("create registered provider", func(t *testing.T) {
		p, err := NewProvider("fake", map[string]any{"name": "fake"})
		require.NoError(t, err)
		assert.Equal(t, "fake", p.Name())
	})

	t.Run("factory errors propagate", func(t *testing.T) {
		_, err := NewProvider("fake", map[string]any{})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider("does-not-exist", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does-not-exist")
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() {
			RegisterProvider("fake", func(map[string]any) (Provider, error) { return nil, nil })
		})
	})

	t.Run("registered providers are listed", func(t *testing.T) {
		assert.Contains(t, RegisteredProviders(), "fake")
	})
}

func TestCachedEmbeddingProviderWithoutRedis(t *testing.T) {
	// A nil redis client must behave as a transparent pass-through.
	cached := NewCachedEmbeddingProvider(&fakeProvider{name: "fake"}, nil, nil)

	single, err := cached.EmbedSingle(context.Background(), "hallo")
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, single)

	batch, err := cached.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}
