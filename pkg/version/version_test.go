package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	defer func(old string) { Version = old }(Version)

	Version = EmptyValue
	assert.Equal(t, "dev", Get())

	Version = "v0.3.1"
	assert.Equal(t, "v0.3.1", Get())
}
