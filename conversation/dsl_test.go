package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kiln "github.com/spetersoncode/kiln"
)

func TestParse(t *testing.T) {
	t.Run("full role names", func(t *testing.T) {
		p, err := Parse("@system:sys|@user:q|@assistant:a|@tool:result", "")
		require.NoError(t, err)

		turns := p.Turns()
		require.Len(t, turns, 4)
		assert.Equal(t, kiln.RoleSystem, turns[0].Role)
		assert.Equal(t, kiln.RoleUser, turns[1].Role)
		assert.Equal(t, kiln.RoleAssistant, turns[2].Role)
		assert.Equal(t, kiln.RoleTool, turns[3].Role)
		assert.Equal(t, []string{"sys"}, turns[0].Columns)
	})

	t.Run("single letter aliases", func(t *testing.T) {
		p, err := Parse("@s:sys|@u:q|@a:ans|@t:res", "")
		require.NoError(t, err)

		turns := p.Turns()
		require.Len(t, turns, 4)
		assert.Equal(t, kiln.RoleSystem, turns[0].Role)
		assert.Equal(t, kiln.RoleTool, turns[3].Role)
	})

	t.Run("newline separator", func(t *testing.T) {
		p, err := Parse("@u:q\n@a:ans", "\n")
		require.NoError(t, err)
		assert.Len(t, p.Turns(), 2)
	})

	t.Run("newlines ignored with default separator", func(t *testing.T) {
		p, err := Parse("@u:q|\n@a:ans", "")
		require.NoError(t, err)
		assert.Len(t, p.Turns(), 2)
	})

	t.Run("tool_calls directive", func(t *testing.T) {
		p, err := Parse(`@u:q|@a:tool_calls([call1, "call2"])`, "")
		require.NoError(t, err)

		turns := p.Turns()
		require.Len(t, turns, 2)
		assert.Equal(t, DirectiveToolCalls, turns[1].Directive)
		assert.Equal(t, []string{"call1", "call2"}, turns[1].Columns)
	})

	t.Run("tool_calls without brackets", func(t *testing.T) {
		p, err := Parse("@a:tool_calls(call1)", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"call1"}, p.Turns()[0].Columns)
	})

	t.Run("think directive", func(t *testing.T) {
		p, err := Parse("@u:q|@a:think(reasoning)", "")
		require.NoError(t, err)

		turns := p.Turns()
		assert.Equal(t, DirectiveThink, turns[1].Directive)
		assert.Equal(t, []string{"reasoning"}, turns[1].Columns)
	})

	t.Run("errors", func(t *testing.T) {
		cases := []struct {
			name      string
			dsl       string
			separator string
		}{
			{"empty string", "", ""},
			{"missing role prefix", "user:q", ""},
			{"unknown role", "@x:q", ""},
			{"missing column", "@u:", ""},
			{"tool_calls on user turn", "@u:tool_calls([c])", ""},
			{"think on tool turn", "@t:think(c)", ""},
			{"tool_calls empty list", "@a:tool_calls([])", ""},
			{"at-sign separator", "@u:q@a:ans", "@"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Parse(tc.dsl, tc.separator)
				assert.Error(t, err)
			})
		}
	})
}
