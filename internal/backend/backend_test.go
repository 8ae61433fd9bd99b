package backend

import (
	"testing"

	"github.com/samsaffron/line-llm/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b, err := New(config.BackendConfig{Kind: "dify", BaseURL: "https://dify.example/v1/", APIKey: "k"})
	require.NoError(t, err)
	dify, ok := b.(*DifyClient)
	require.True(t, ok, "got %T", b)
	assert.Equal(t, "https://dify.example/v1", dify.BaseURL)
	assert.Equal(t, DefaultTimeout, dify.HTTPClient.Timeout)

	b, err = New(config.BackendConfig{Kind: "OpenAI", APIKey: "k", Model: "gpt-x"})
	require.NoError(t, err)
	assert.Equal(t, "openai (gpt-x)", b.Name())

	_, err = New(config.BackendConfig{Kind: "bard"})
	assert.Error(t, err)
}
