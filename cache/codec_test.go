package cache

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/prashanthpai/sqlsnap/snapshot"
)

func testSnapshot(t *testing.T, n int) *snapshot.Snapshot {
	cols := []snapshot.Column{
		{Name: "id", DeclaredType: "INTEGER", Kind: snapshot.KindInt},
		{Name: "note", DeclaredType: "TEXT", Kind: snapshot.KindText},
		{Name: "price", DeclaredType: "NUMERIC", Kind: snapshot.KindDecimal},
		{Name: "ref", DeclaredType: "UUID", Kind: snapshot.KindUUID},
		{Name: "at", DeclaredType: "TIMESTAMP", Kind: snapshot.KindTime},
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := make([][]snapshot.Value, n)
	for i := range rows {
		rows[i] = []snapshot.Value{
			snapshot.Int(int64(i)),
			snapshot.Text("the same note repeated for every row"),
			snapshot.Decimal(decimal.New(int64(i)*125, -2)),
			snapshot.UUID(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")),
			snapshot.Time(at),
		}
	}
	rows = append(rows, []snapshot.Value{snapshot.Int(-1), snapshot.Null(), snapshot.Null(), snapshot.Null(), snapshot.Null()})

	snap, err := snapshot.New("T1", cols, rows)
	require.NoError(t, err)
	return snap
}

func requireSameSnapshot(assert *require.Assertions, want, got *snapshot.Snapshot) {
	assert.Equal(want.TableID(), got.TableID())
	assert.Equal(want.Columns(), got.Columns())
	assert.Equal(want.RowCount(), got.RowCount())
	for i := 0; i < want.RowCount(); i++ {
		w, err := want.Row(i)
		assert.NoError(err)
		g, err := got.Row(i)
		assert.NoError(err)
		for j := range w {
			assert.True(w[j].Equal(g[j]), "row %d column %d: %s != %s", i, j, w[j], g[j])
		}
	}
}

func TestCodec(t *testing.T) {
	assert := require.New(t)

	snap := testSnapshot(t, 200)

	raw, err := Codec{}.Encode(snap)
	assert.NoError(err)
	assert.Equal(encRaw, raw[0])

	packed, err := Codec{Compress: true}.Encode(snap)
	assert.NoError(err)
	assert.Equal(encXZ, packed[0])
	assert.Less(len(packed), len(raw))

	// either codec reads both encodings
	for _, c := range []Codec{{}, {Compress: true}} {
		got, err := c.Decode(raw)
		assert.NoError(err)
		requireSameSnapshot(assert, snap, got)

		got, err = c.Decode(packed)
		assert.NoError(err)
		requireSameSnapshot(assert, snap, got)
	}
}

func TestCodecKeepsZone(t *testing.T) {
	assert := require.New(t)

	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.FixedZone("X", 5*3600))
	snap, err := snapshot.New("T2", []snapshot.Column{
		{Name: "at", DeclaredType: "TIMESTAMPTZ", Kind: snapshot.KindTime},
	}, [][]snapshot.Value{{snapshot.Time(at)}, {snapshot.Time(at.UTC())}})
	assert.NoError(err)

	for _, c := range []Codec{{}, {Compress: true}} {
		b, err := c.Encode(snap)
		assert.NoError(err)
		got, err := c.Decode(b)
		assert.NoError(err)

		cur := snapshot.NewCursor(got)
		ok, err := cur.Next()
		assert.NoError(err)
		assert.True(ok)
		have, err := cur.Time(0)
		assert.NoError(err)
		assert.True(at.Equal(have))
		assert.Equal("2024-01-02T03:04:05.000000006+05:00", have.Format(time.RFC3339Nano))
		_, offset := have.Zone()
		assert.Equal(5*3600, offset)

		ok, err = cur.Next()
		assert.NoError(err)
		assert.True(ok)
		have, err = cur.Time(0)
		assert.NoError(err)
		assert.Equal(time.UTC, have.Location())
		assert.Equal("2024-01-01T22:04:05.000000006Z", have.Format(time.RFC3339Nano))
	}
}

func TestCodecErrors(t *testing.T) {
	assert := require.New(t)

	_, err := Codec{}.Decode(nil)
	assert.ErrorIs(err, ErrUnknownEncoding)

	_, err = Codec{}.Decode([]byte{9, 1, 2})
	assert.ErrorIs(err, ErrUnknownEncoding)

	_, err = Codec{}.Decode([]byte{encXZ, 1, 2, 3})
	assert.Error(err)

	raw, err := Codec{}.Encode(testSnapshot(t, 1))
	assert.NoError(err)
	_, err = Codec{}.Decode(bytes.Clone(raw[:len(raw)/2]))
	assert.Error(err)
}
