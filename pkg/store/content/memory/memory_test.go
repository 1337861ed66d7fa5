package memory

import (
	"context"
	"testing"

	"github.com/marmos91/filewallet/pkg/store/content"
	contenttesting "github.com/marmos91/filewallet/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	suite := &contenttesting.BackendTestSuite{
		NewBackend: func(t *testing.T) content.Backend {
			return NewMemoryBackend(Config{})
		},
	}
	suite.Run(t)
}

func TestMemoryBackend_MaxObjectBytes(t *testing.T) {
	b := NewMemoryBackend(Config{MaxObjectBytes: 4})

	_, err := b.Write(context.Background(), "k", []byte("12345"))
	assert.ErrorIs(t, err, content.ErrTooLarge)
	assert.ErrorIs(t, err, content.ErrTransferFailed)

	_, err = b.Write(context.Background(), "k", []byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
}
