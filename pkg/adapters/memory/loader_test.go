package memory_test

import (
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	data := map[string]string{
		"start": `{"id":"start","kind":"action"}`,
		"end":   `{"id":"end","kind":"return"}`,
	}

	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	loader := memory.NewLoader(data)

	ports.RunGraphLoaderContract(t, loader, bytesData)
}

func TestNewFromNodes(t *testing.T) {
	loader, err := memory.NewFromNodes(
		domain.Node{ID: "b", Kind: domain.KindReturn},
		domain.Node{ID: "a", Kind: domain.KindAction, Edges: map[string][]string{domain.EdgeNext: {"b"}}},
	)
	require.NoError(t, err)

	ids, err := loader.ListNodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	raw, err := loader.GetNode("a")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"next":["b"]`)

	_, err = memory.NewFromNodes(domain.Node{Kind: domain.KindReturn})
	assert.Error(t, err)

	_, err = memory.NewFromNodes(domain.Node{ID: "x"}, domain.Node{ID: "x"})
	assert.ErrorContains(t, err, "node 'x' is defined twice")
}

func TestLoader_Add(t *testing.T) {
	loader := memory.NewLoader(nil)
	require.NoError(t, loader.Add(domain.Node{ID: "done", Kind: domain.KindReturn}))

	raw, err := loader.GetNode("done")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"done"`)

	assert.ErrorContains(t, loader.Add(domain.Node{Kind: domain.KindLog}), "has no id")
}
