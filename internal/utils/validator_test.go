// internal/utils/validator_test.go
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type productKeyFixture struct {
	Key string `validate:"required,product_key"`
}

func TestValidateProductKey(t *testing.T) {
	valid := []string{"SN-1", "PID:batch.42", "a", "X_9", strings.Repeat("k", 255)}
	for _, key := range valid {
		assert.NoError(t, ValidateStruct(&productKeyFixture{Key: key}), key)
	}

	invalid := []string{"", "has space", "emoji™", strings.Repeat("k", 256), "slash/"}
	for _, key := range invalid {
		assert.Error(t, ValidateStruct(&productKeyFixture{Key: key}), key)
	}
}

func TestDeriveAddress(t *testing.T) {
	address := DeriveAddress("alice")

	assert.True(t, strings.HasPrefix(address, "0x"))
	assert.Len(t, address, 42) // 0x + 20 hex-encoded bytes

	assert.Equal(t, address, DeriveAddress("alice"))
	assert.NotEqual(t, address, DeriveAddress("bob"))
}
