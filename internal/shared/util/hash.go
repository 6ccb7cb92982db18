package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// UserNamespace maps an identity ID onto the directory and key prefix that
// hold that user's files and values. Provider IDs such as "local:dev" are
// not path safe, so the ID is hashed.
func UserNamespace(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
