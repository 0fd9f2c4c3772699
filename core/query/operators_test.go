package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorRegistry_Standard(t *testing.T) {
	r := DefaultOperatorRegistry()

	aliases := map[ComparisonOperator]string{
		ComparisonOperatorEq:    "eq$",
		ComparisonOperatorNeq:   "ne$",
		ComparisonOperatorGt:    "gt$",
		ComparisonOperatorGte:   "gte$",
		ComparisonOperatorLt:    "lt$",
		ComparisonOperatorLte:   "lte$",
		ComparisonOperatorIn:    "in$",
		ComparisonOperatorNotIn: "nin$",
	}
	for name, alias := range aliases {
		t.Run(string(name), func(t *testing.T) {
			byName, ok := r.Lookup(string(name))
			require.True(t, ok)
			byAlias, ok := r.Lookup(alias)
			require.True(t, ok)
			assert.Equal(t, byName.Name, byAlias.Name)
			assert.Equal(t, name == ComparisonOperatorNotIn, byName.RequiresPathPattern)
		})
	}

	assert.False(t, r.Has("contains"))
	assert.False(t, r.Has("equal$"))
}

func TestOperatorRegistry_Extra(t *testing.T) {
	startsWith := Operator{
		Name:    "startsWith",
		Aliases: []string{"sw$"},
		Render: func(b Binder, id, field, ref string, value any) (string, error) {
			return fmt.Sprintf("%s STARTS WITH %s", ref, b.Bind(id, field, value)), nil
		},
	}
	r := NewOperatorRegistry(startsWith)
	assert.True(t, r.Has("startsWith"))
	assert.True(t, r.Has("equal"))
	assert.False(t, DefaultOperatorRegistry().Has("startsWith"))

	stmt, err := NewStatementCompiler(WithRegistry(r)).CompileList("foo", Filter{"name": map[string]any{"sw$": "Jo"}})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo) WHERE n.name STARTS WITH {n_name_0} RETURN n", stmt.Text)
	assert.Equal(t, map[string]any{"n_name_0": "Jo"}, stmt.Parameters)
}
