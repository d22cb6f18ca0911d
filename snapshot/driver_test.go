package snapshot

import (
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/require"
)

type multiRows struct {
	*fakeRows
	sets [][]driver.Value
}

func (m *multiRows) HasNextResultSet() bool { return len(m.sets) > 0 }

func (m *multiRows) NextResultSet() error {
	m.fakeRows.data = [][]driver.Value{m.sets[0]}
	m.fakeRows.pos = 0
	m.sets = m.sets[1:]
	return nil
}

func TestDriverCursorHasRowsPeeks(t *testing.T) {
	assert := require.New(t)

	c := NewDriverCursor(idNameRows())
	assert.True(c.HasRows())
	assert.True(c.HasRows())

	ok, err := c.Next()
	assert.NoError(err)
	assert.True(ok)
	id, err := c.Int64(0)
	assert.NoError(err)
	assert.Equal(int64(1), id)

	ok, _ = c.Next()
	assert.True(ok)
	ok, _ = c.Next()
	assert.False(ok)
	assert.True(c.HasRows())

	empty := NewDriverCursor(&fakeRows{cols: []string{"x"}})
	assert.False(empty.HasRows())
	ok, err = empty.Next()
	assert.NoError(err)
	assert.False(ok)
}

func TestDriverCursorNextResultSet(t *testing.T) {
	assert := require.New(t)

	single := NewDriverCursor(idNameRows())
	_, err := single.NextResultSet()
	assert.ErrorIs(err, ErrNotSupported)

	m := &multiRows{fakeRows: idNameRows(), sets: [][]driver.Value{{int64(9), "z"}}}
	c := NewDriverCursor(m)
	for {
		ok, err := c.Next()
		assert.NoError(err)
		if !ok {
			break
		}
	}
	ok, err := c.NextResultSet()
	assert.NoError(err)
	assert.True(ok)
	ok, _ = c.Next()
	assert.True(ok)
	id, err := c.Int64(0)
	assert.NoError(err)
	assert.Equal(int64(9), id)

	ok, err = c.NextResultSet()
	assert.NoError(err)
	assert.False(ok)
}

func TestDriverCursorCloseOnce(t *testing.T) {
	assert := require.New(t)

	src := idNameRows()
	c := NewDriverCursor(src)
	assert.NoError(c.Close())
	assert.NoError(c.Close())
	assert.Equal(1, src.closed)
	_, err := c.Next()
	assert.ErrorIs(err, ErrClosed)
}
