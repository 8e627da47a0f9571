package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNamespaces(t *testing.T) {
	assert.Equal(t, "edumeet:dashboard:u1", Key("dashboard", "u1"))
	assert.Equal(t, "edumeet:identity:*", Key("identity", "*"))
}
