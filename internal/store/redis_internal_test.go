package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "cti2026:", escapeGlob("cti2026:"))
	assert.Equal(t, `a\*b\?c\[d\]\\`, escapeGlob(`a*b?c[d]\`))
}

func TestNewRedisBackend_BadURL(t *testing.T) {
	_, err := NewRedisBackend("http://localhost")
	assert.Error(t, err)
}
