package query_test

import (
	"context"
	"testing"

	"github.com/informationgrid/ingrid-search-utils/query"
	"github.com/informationgrid/ingrid-search-utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndExecute(t *testing.T) {
	idx := testutil.DummyIndex()
	c := query.NewCompiler()
	ctx := context.Background()

	tests := []struct {
		input string
		docs  []uint32
	}{
		{"wasser", []uint32{3, 4, 6, 7}},
		{"Wasser partner:bund", []uint32{3, 4}},
		{"-antike", nil},
		{"wasser -antike", []uint32{4, 6, 7}},
		{"-antike partner:bund", []uint32{0, 1, 2, 4}},
		{"partner:bund", []uint32{0, 1, 2, 3, 4}},
		{"partner:BUND", nil},
		{"datatype:csw AND metaclass:2 OR metaclass:3", []uint32{6, 7}},
		{"metaclass:(1 OR 3)", []uint32{0, 1, 2, 7}},
		{"partner:bund AND (Waldbrand OR Auto)", nil},
		{"bursting -partner:bund", []uint32{5}},
		{`content:"menschlichen nutzung"`, []uint32{0}},
		{"title:wasser", []uint32{0, 1, 2, 3, 4, 6, 7}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pred, err := c.Compile(tt.input)
			require.NoError(t, err)

			set, err := c.Execute(ctx, pred, idx)
			require.NoError(t, err)
			require.Len(t, set, 1)
			assert.Equal(t, tt.docs, set[0].ToArray(), pred.String())
		})
	}
}

func TestExecuteSharded(t *testing.T) {
	idx := testutil.DummyIndex(3)
	c := query.NewCompiler(func(o *query.Options) { o.Parallelism = 2 })

	pred, err := c.Compile("wasser partner:bund")
	require.NoError(t, err)

	set, err := c.Execute(context.Background(), pred, idx)
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, uint64(2), set.Cardinality())
}

func TestExecuteErrors(t *testing.T) {
	r := testutil.NewFaultyReader(testutil.DummyIndex(2))
	r.AddRule("partner", testutil.Fault{FailPostings: true})
	c := query.NewCompiler()

	pred, err := c.Compile("partner:bund")
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), pred, r)
	assert.ErrorIs(t, err, testutil.ErrInjected)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Execute(ctx, c.Term("datatype", "iso"), r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompileParseError(t *testing.T) {
	_, err := query.NewCompiler().Compile("(partner:bund")
	assert.ErrorIs(t, err, query.ErrParse)
}

func TestTermAndConjunction(t *testing.T) {
	idx := testutil.DummyIndex()
	c := query.NewCompiler()

	frag, err := c.Compile("partner:bund")
	require.NoError(t, err)

	pred := query.Conjunction(frag, c.Term("provider", "bund_2"))
	set, err := c.Execute(context.Background(), pred, idx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3, 4}, set[0].ToArray())

	// text fields are analyzed
	set, err = c.Execute(context.Background(), c.Term("content", "Wasser"), idx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), set.Cardinality())
}

func TestExecuteReusesScratchBitmaps(t *testing.T) {
	idx := testutil.DummyIndex()
	c := query.NewCompiler()

	pred, err := c.Compile("(metaclass:1 OR metaclass:3) -datatype:csw")
	require.NoError(t, err)
	other, err := c.Compile("partner:ni OR provider:bund_2")
	require.NoError(t, err)

	first, err := c.Execute(context.Background(), pred, idx)
	require.NoError(t, err)
	for range 3 {
		_, err := c.Execute(context.Background(), other, idx)
		require.NoError(t, err)
		again, err := c.Execute(context.Background(), pred, idx)
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 1, 2}, again[0].ToArray())
	}
	// earlier results are not recycled
	assert.Equal(t, []uint32{0, 1, 2}, first[0].ToArray())
}
