package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
	msgpack "github.com/vmihailenco/msgpack/v4"

	"github.com/prashanthpai/sqlsnap/snapshot"
)

// ErrUnknownEncoding is returned by Decode for bytes it did not produce.
var ErrUnknownEncoding = errors.New("cache: unknown snapshot encoding")

const (
	encRaw byte = iota
	encXZ
)

// Codec turns snapshots into bytes for stores living outside the process.
// The first byte records whether the msgpack body is xz compressed, so a
// store can switch Compress without flushing.
type Codec struct {
	Compress bool
}

// Encode serializes snap.
func (c Codec) Encode(snap *snapshot.Snapshot) ([]byte, error) {
	body, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if !c.Compress {
		return append([]byte{encRaw}, body...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(encXZ)
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("xz writer: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses bytes written by Encode regardless of the Compress setting.
func (c Codec) Decode(b []byte) (*snapshot.Snapshot, error) {
	if len(b) == 0 {
		return nil, ErrUnknownEncoding
	}

	body := b[1:]
	switch b[0] {
	case encRaw:
	case encXZ:
		r, err := xz.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		if body, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("header byte %d: %w", b[0], ErrUnknownEncoding)
	}

	snap := new(snapshot.Snapshot)
	if err := msgpack.Unmarshal(body, snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
