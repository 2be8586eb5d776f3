// Package testutil provides fixtures for tests and benchmarks.
//
// # Fixture corpus
//
//	idx := testutil.DummyIndex()       // 8 documents, one shard
//	idx := testutil.DummyIndex(3)      // same documents over 3 shards
//
// # Random corpora
//
//	rng := testutil.NewRNG(seed)
//	idx := rng.Corpus(10_000, 4, map[string]int{"provider": 500})
//
// # Fault injection
//
//	r := testutil.NewFaultyReader(idx)
//	r.AddRule("partner", testutil.Fault{FailPostings: true})
package testutil
