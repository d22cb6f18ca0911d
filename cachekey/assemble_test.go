package cachekey

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	assert := require.New(t)

	logger, hook := test.NewNullLogger()
	a := NewAssembler(logger)

	query := `SELECT * FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.id = $1`
	d := a.Assemble(query, baseParams(), Policy{Salt: "s"})

	raw, hash := Derive(query, baseParams(), "s")
	assert.Equal(raw, d.RawKeyMaterial)
	assert.Equal(hash, d.KeyHash)
	assert.Equal([]string{"customers", "orders"}, d.Dependencies)
	assert.True(d.Cacheable())

	entry := hook.LastEntry()
	assert.NotNil(entry)
	assert.Equal(logrus.InfoLevel, entry.Level)
	assert.Equal(d.KeyHash, entry.Data["key_hash"])
	assert.Equal(d.Dependencies, entry.Data["dependencies"])
}

func TestAssembleLoggingDoesNotAffectKey(t *testing.T) {
	assert := require.New(t)

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	withLog := NewAssembler(logger).Assemble("SELECT 1", nil, Policy{})
	silent := NewAssembler(nil).Assemble("SELECT 1", nil, Policy{})

	assert.Equal(withLog.KeyHash, silent.KeyHash)
	assert.False(silent.Cacheable())
}
