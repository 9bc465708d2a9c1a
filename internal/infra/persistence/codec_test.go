package persistence

import (
	"checklist/pkg/domain"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	records := []domain.Record{
		{ID: "a", Priority: 1, PrimaryLabel: "ann", SecondaryLabel: "milk"},
		{ID: "b", Checked: true, Priority: 3, PrimaryLabel: "bob", SecondaryLabel: "eggs"},
	}
	data, err := Encode(domain.TodoSchema, records)
	require.NoError(t, err)
	out, err := Decode(domain.TodoSchema, data)
	require.NoError(t, err)
	assert.Equal(t, records, out)
}

func TestDecodeEmptyPayload(t *testing.T) {
	out, err := Decode(domain.PlayerSchema, []byte("[]"))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)

	_, err = Decode(domain.PlayerSchema, nil)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
}

func TestDecodeCorrupt(t *testing.T) {
	for _, raw := range []string{`not json`, `null`, `[{"id":"a"}]`, `[{"id":"a","checked":false,"prio":1,"owner":"x","todo":"y"},{"id":"a","checked":false,"prio":1,"owner":"x","todo":"y"}]`} {
		_, err := Decode(domain.TodoSchema, []byte(raw))
		assert.True(t, errors.Is(err, domain.ErrCorrupt), "%s: %v", raw, err)
	}
}

func TestDecodeInvalidSchema(t *testing.T) {
	_, err := Decode(domain.Schema{Name: "x"}, []byte(`[]`))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrCorrupt))
}
