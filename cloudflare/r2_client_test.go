package cloudflare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://abc123.r2.cloudflarestorage.com", Endpoint("abc123"))
}
