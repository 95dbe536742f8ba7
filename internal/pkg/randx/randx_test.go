package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionID(t *testing.T) {
	a, b := ConnectionID(), ConnectionID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("chat/u1", ".WEBM")
	require.True(t, strings.HasPrefix(key, "chat/u1/"))
	assert.True(t, strings.HasSuffix(key, ".webm"))
	assert.True(t, HasScope(key, "chat/u1"))
	assert.False(t, HasScope(key, "chat/u2"))

	escaped := ObjectKey("../../etc", ".txt")
	assert.True(t, strings.HasPrefix(escaped, "etc/"))
}

func TestHasScope_RejectsTraversal(t *testing.T) {
	assert.False(t, HasScope("chat/u1/../u2/x.txt", "chat/u1"))
}
