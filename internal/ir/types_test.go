package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedKind_ClosedEnum(t *testing.T) {
	testCases := []struct {
		name string
		kind Kind
		want Kind
	}{
		{"known kind passes through", KindFilter, KindFilter},
		{"load passes through", KindLoad, KindLoad},
		{"explicit unknown stays unknown", KindUnknown, KindUnknown},
		{"unrecognized folds to unknown", Kind("inspect.deepdive"), KindUnknown},
		{"empty folds to unknown", Kind(""), KindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := Node{ID: "n1", Kind: tc.kind}
			assert.Equal(t, tc.want, n.NormalizedKind())
		})
	}
}

func TestInputArity(t *testing.T) {
	assert.Equal(t, 0, InputArity(KindLoad))
	assert.Equal(t, 2, InputArity(KindJoin))
	assert.Equal(t, 1, InputArity(KindSelect))
	assert.Equal(t, 1, InputArity(KindWrite))
	assert.Equal(t, 1, InputArity(KindUnknown))
}

func TestCloneNodes_Independent(t *testing.T) {
	orig := []Node{{ID: "a", Kind: KindSelect, Payload: Payload{Columns: "x,y"}}}
	cl := CloneNodes(orig)
	cl[0].Payload.Columns = "x"
	assert.Equal(t, "x,y", orig[0].Payload.Columns)
}
