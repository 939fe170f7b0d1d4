package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****7f3a", MaskSecret("6f1c2d4e-0000-4000-8000-00000a1b7f3a"))
}

func TestMaskMetadataOnlySensitiveKeys(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"supplier_id": "123",
		"new_token":   "6f1c2d4e-0000-4000-8000-00000a1b7f3a",
		"nested":      map[string]any{"password": "hunter22"},
		"count":       3,
	})

	assert.Equal(t, "123", out["supplier_id"])
	assert.Equal(t, "****7f3a", out["new_token"])
	assert.Equal(t, map[string]any{"password": "****er22"}, out["nested"])
	assert.Equal(t, 3, out["count"])
}
