package lexer

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize performs input normalization at the lexer boundary: it strips a
// leading UTF-8 BOM and applies Unicode NFC normalization, so that
// lexically-equivalent source (e.g. a class name typed with a combining
// accent vs. a precomposed one) tokenizes identically.
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}
