package main

import (
	"crypto/sha256"
	"encoding/hex"
)

func contentHashOf(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
