/*
Package cachekey derives query result cache keys and invalidation tags.

A Descriptor couples a deterministic key hash, built from the normalized query
text, every bound parameter and a caller supplied salt, with the sorted set of
tables the query touches. Tables are found by a lightweight lexical scan, not
by parsing the statement, so an empty set means the dependencies are unknown:
such entries cannot be invalidated selectively and callers should either not
cache them or cache them briefly.

	a := cachekey.NewAssembler(logger)
	d := a.Assemble(query, cachekey.ParamsFromNamed(args), cachekey.Policy{Salt: tenant})
	if d.Cacheable() {
		store.Set(ctx, d.KeyHash, snap, d.Dependencies, ttl)
	}
*/
package cachekey
