/*
Package randx generates identifiers: connection ids and object storage keys.
*/
package randx

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ConnectionID returns a random id for a live socket.
func ConnectionID() string {
	return uuid.NewString()
}

// ObjectKey returns "<scope>/<uuid><ext>" with ext lower-cased. scope is
// cleaned so it cannot climb out of its prefix.
func ObjectKey(scope, ext string) string {
	scope = strings.Trim(path.Clean("/"+scope), "/")
	return fmt.Sprintf("%s/%s%s", scope, uuid.NewString(), strings.ToLower(ext))
}

// HasScope reports whether key was issued under scope by ObjectKey.
func HasScope(key, scope string) bool {
	scope = strings.Trim(path.Clean("/"+scope), "/")
	return strings.HasPrefix(key, scope+"/") && !strings.Contains(key, "..")
}
