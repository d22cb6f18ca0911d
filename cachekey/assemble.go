package cachekey

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Policy carries the caller's caching choices for one query.
type Policy struct {
	// Salt is mixed into the key to separate otherwise identical queries,
	// for example per tenant.
	Salt string
	// Dependencies, when non-nil, replaces dependency scanning for the query.
	Dependencies []string
}

// Descriptor is the cache lookup descriptor of one query execution.
type Descriptor struct {
	RawKeyMaterial string
	KeyHash        string
	Dependencies   []string
}

// Cacheable reports whether the entry can be invalidated by table. Entries
// without dependencies need a conservative policy.
func (d Descriptor) Cacheable() bool {
	return len(d.Dependencies) > 0
}

// Dependencies returns the policy override when one is set and the scanned
// tables of text otherwise.
func Dependencies(text string, policy Policy) []string {
	if policy.Dependencies != nil {
		return normalizeSet(policy.Dependencies)
	}
	return ExtractDependencies(text)
}

// Assembler combines key derivation and dependency extraction and logs
// every descriptor it hands out. It is safe for concurrent use.
type Assembler struct {
	log logrus.FieldLogger
}

// NewAssembler returns an Assembler logging to log. A nil log discards.
func NewAssembler(log logrus.FieldLogger) *Assembler {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Assembler{log: log}
}

// Assemble builds the Descriptor of a normalized query.
func (a *Assembler) Assemble(text string, params []Param, policy Policy) Descriptor {
	raw, hash := Derive(text, params, policy.Salt)
	d := Descriptor{
		RawKeyMaterial: raw,
		KeyHash:        hash,
		Dependencies:   Dependencies(text, policy),
	}

	a.log.WithFields(logrus.Fields{
		"key_hash":     d.KeyHash,
		"dependencies": d.Dependencies,
	}).Info("cache key assembled")

	return d
}
