package runtime

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreNode_RejectsMalformedRecords(t *testing.T) {
	tests := map[string]domain.Node{
		"misspelled operation": {ID: "s", Kind: domain.KindStore, Key: "k", Operation: "retreive", Value: "clobbered"},
		"empty key":            {ID: "s", Kind: domain.KindStore, Value: "v"},
	}
	for name, rec := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fc := newTestContext()
			n := &storeNode{base{rec: &rec}}

			err := n.Execute(ctx, fc)
			assert.ErrorIs(t, err, domain.ErrConfiguration)

			_, err = n.Get(ctx, fc)
			assert.ErrorIs(t, err, domain.ErrConfiguration)

			keys, err := fc.store.Keys(ctx)
			require.NoError(t, err)
			assert.Empty(t, keys, "a malformed store node must not write")
		})
	}
}

func TestComparisonNode_RejectsUnknownOperation(t *testing.T) {
	rec := domain.Node{ID: "cmp", Kind: domain.KindComparison, Operation: "greater_than", Value: 1}
	n := &comparisonNode{base{rec: &rec}}

	_, err := n.Get(context.Background(), newTestContext())
	var cerr *domain.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "cmp", cerr.NodeID)
}
