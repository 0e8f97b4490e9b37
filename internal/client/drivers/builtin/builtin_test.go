package builtin

import (
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"fsdir", "grpc", "inmem", "mongo", "redis", "s3"}, r.Types())

	for _, typ := range r.Types() {
		d, err := r.New(typ)
		require.NoError(t, err, typ)
		assert.NoError(t, d.Close(), typ)
	}

	assert.NoError(t, r.Validate("fsdir", map[string]any{"dir": t.TempDir()}))
	assert.Error(t, r.Validate("s3", map[string]any{}))
	_, err := r.New("ftp")
	assert.ErrorIs(t, err, common.ErrUnknownDriver)
}
