package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey builds a namespaced cache key: prefix:sha256(parts). The parts
// are JSON-encoded before hashing so endpoint URLs, dataset names, and
// convention parameters cannot collide across separators, and the full
// 64-character digest keeps row keys and document keys collision-free.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash returns the hex SHA-256 digest of data. The pipeline uses it as
// the content identity of a serialized row set; the same digest then
// keys the document assembled from those rows.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
