package cachekey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Derive builds the raw key material for a normalized query and returns it
// together with its xxHash64 digest rendered as 16 uppercase hex digits.
//
// The material is the trimmed query text, a newline, one
// "name=value,Size=n,Precision=n,Scale=n,Direction=d," segment per parameter
// in binding order and a final "SaltKey=salt" segment. Policy annotations
// must already be stripped from text.
func Derive(text string, params []Param, salt string) (raw, hash string) {
	var b strings.Builder
	text = strings.TrimSpace(text)
	b.Grow(len(text) + len(params)*48 + len(salt) + 9)

	b.WriteString(text)
	b.WriteByte('\n')
	for _, p := range params {
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value.String())
		b.WriteString(",Size=")
		b.WriteString(strconv.Itoa(p.Size))
		b.WriteString(",Precision=")
		b.WriteString(strconv.Itoa(int(p.Precision)))
		b.WriteString(",Scale=")
		b.WriteString(strconv.Itoa(int(p.Scale)))
		b.WriteString(",Direction=")
		b.WriteString(p.Direction.String())
		b.WriteByte(',')
	}
	b.WriteString("SaltKey=")
	b.WriteString(salt)

	raw = b.String()
	return raw, fmt.Sprintf("%016X", xxhash.Sum64String(raw))
}
