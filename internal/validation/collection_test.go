package validation

import (
	"checklist/pkg/domain"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentDescribesSchema(t *testing.T) {
	data, err := Document(domain.PlayerSchema)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "array", doc["type"])
	items := doc["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.ElementsMatch(t, []any{"id", "checked", "prio", "firstName", "lastName"}, items["required"])
	prio := items["properties"].(map[string]any)["prio"].(map[string]any)
	assert.Equal(t, float64(domain.MinPriority), prio["minimum"])
	assert.Equal(t, float64(domain.MaxPriority), prio["maximum"])
}

func TestForSchemaCaches(t *testing.T) {
	a, err := ForSchema(domain.TodoSchema)
	require.NoError(t, err)
	b, err := ForSchema(domain.TodoSchema)
	require.NoError(t, err)
	assert.Same(t, a, b)
	c, err := ForSchema(domain.PlayerSchema)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestForSchemaRejectsInvalidSchema(t *testing.T) {
	_, err := ForSchema(domain.Schema{Name: "broken"})
	assert.Error(t, err)
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	v, err := ForSchema(domain.TodoSchema)
	require.NoError(t, err)
	assert.NoError(t, v.Validate([]byte(" []\n")))
	assert.NoError(t, v.Validate([]byte(`[{"id":"1","checked":true,"prio":2,"owner":"ann","todo":"milk"}]`)))
}

func TestValidateReportsIssues(t *testing.T) {
	v, err := ForSchema(domain.TodoSchema)
	require.NoError(t, err)
	cases := map[string]struct {
		payload string
		path    string
	}{
		"empty":        {``, ""},
		"blank":        {" \n", ""},
		"not json":     {`[{`, ""},
		"not an array": {`{"id":"1"}`, ""},
		"prio range":   {`[{"id":"1","checked":false,"prio":1,"owner":"a","todo":"b"},{"id":"2","checked":false,"prio":9,"owner":"a","todo":"b"}]`, "[1].prio"},
		"empty label":  {`[{"id":"1","checked":false,"prio":1,"owner":"","todo":"b"}]`, "[0].owner"},
		"string flag":  {`[{"id":"1","checked":"yes","prio":1,"owner":"a","todo":"b"}]`, "[0].checked"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := v.Validate([]byte(tc.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrCorrupt))
			var ce *CollectionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "todos", ce.Collection)
			require.NotEmpty(t, ce.Issues)
			if tc.path != "" {
				var paths []string
				for _, issue := range ce.Issues {
					paths = append(paths, issue.Path)
				}
				assert.Contains(t, paths, tc.path)
			}
		})
	}
}

func TestValidateRejectsExtraAndMissingKeys(t *testing.T) {
	v, err := ForSchema(domain.TodoSchema)
	require.NoError(t, err)
	err = v.Validate([]byte(`[{"id":"1","checked":false,"prio":1,"owner":"a","todo":"b","color":"red"}]`))
	assert.ErrorIs(t, err, domain.ErrCorrupt)
	err = v.Validate([]byte(`[{"id":"1","checked":false,"owner":"a","todo":"b"}]`))
	assert.ErrorIs(t, err, domain.ErrCorrupt)
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "", pointerToPath(""))
	assert.Equal(t, "", pointerToPath("#"))
	assert.Equal(t, "[3].prio", pointerToPath("/3/prio"))
	assert.Equal(t, "a/b.c~d", pointerToPath("#/a~1b/c~0d"))
	assert.Equal(t, "prio: too big", Issue{Path: "prio", Message: "too big"}.String())
	assert.Equal(t, "oops", Issue{Message: "oops"}.String())
}
