package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pathDoc = `<Catalog xmlns="urn:test:catalog">
  <Groups>
    <Group><Id> g1 </Id><Groups><Group><Id>g1.1</Id></Group></Groups></Group>
    <Group><Id>g2</Id></Group>
  </Groups>
  <Groups>
    <Group><Id>g3</Id></Group>
  </Groups>
  <Products xmlns="urn:other">
    <Product><Id>p1</Id></Product>
  </Products>
</Catalog>`

func parsePathDoc(t *testing.T) *Element {
	t.Helper()
	root, err := Parse(strings.NewReader(pathDoc))
	require.NoError(t, err)
	return root
}

func TestResolverFindAll(t *testing.T) {
	root := parsePathDoc(t)
	r := NewResolver(testNamespace)

	groups := r.FindAll(Join("Groups", "Group"), root)
	require.Len(t, groups, 3, "matches under every Groups element, direct children only")

	ids := make([]string, 0, len(groups))
	for _, group := range groups {
		ids = append(ids, r.Text("Id", group))
	}
	assert.Equal(t, []string{"g1", "g2", "g3"}, ids)

	assert.Nil(t, r.FindAll("Missing/Group", root))
	assert.Nil(t, r.FindAll("Group", root), "lookups never descend past the named steps")
}

func TestResolverFindOne(t *testing.T) {
	root := parsePathDoc(t)
	r := NewResolver(testNamespace)

	first := r.FindOne("Groups/Group/Groups/Group", root)
	require.NotNil(t, first)
	assert.Equal(t, "g1.1", r.Text("Id", first))

	assert.Nil(t, r.FindOne("Groups/Group/Name", root))
	assert.Nil(t, r.FindOne("Id", nil))
	assert.Equal(t, "", r.Text("Groups/Group/Name", root))
	assert.Same(t, root, r.FindOne("", root))
}

func TestResolverNamespaceQualification(t *testing.T) {
	root := parsePathDoc(t)

	assert.Nil(t, NewResolver(testNamespace).FindOne("Products/Product", root),
		"elements in another namespace do not match")
	assert.Nil(t, NewResolver("").FindOne("Groups", root),
		"unqualified lookups do not match namespaced elements")

	other := NewResolver("urn:other")
	assert.Equal(t, "p1", other.Text("Products/Product/Id", root))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b/c", Join("a", "b", "c"))
	assert.Equal(t, "a", Join("a"))
}
