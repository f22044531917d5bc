package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashKey joins parts with "|" and returns the hex MD5 of the result. Used
// for cache keys, not for anything security related.
func HashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
