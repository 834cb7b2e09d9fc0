package tags

import (
	"strings"
	"testing"

	"github.com/go-api-community/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	got, err := Parse(`["Go", " rust ", "go", ""]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rust"}, got)

	got, err = Parse(`[]`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":     `go,rust`,
		"object":       `{"a":"b"}`,
		"string":       `"go"`,
		"numbers":      `[1,2]`,
		"too long tag": `["` + strings.Repeat("a", MaxLength+1) + `"]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, domain.ErrBadRequest)
		})
	}
}

func TestParse_ErrorMessages(t *testing.T) {
	_, err := Parse(`nope`)
	assert.Contains(t, err.Error(), "invalid JSON format for tags")
	_, err = Parse(`{}`)
	assert.Contains(t, err.Error(), "tags must be a valid JSON array")
}

func TestNormalize_TooMany(t *testing.T) {
	in := make([]string, 0, MaxTags+1)
	for i := 0; i <= MaxTags; i++ {
		in = append(in, strings.Repeat("x", i+1))
	}
	_, err := Normalize(in)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestFromRaw(t *testing.T) {
	got, err := FromRaw([]byte(`["AI","ml"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"ai", "ml"}, got)

	got, err = FromRaw([]byte(`"[\"AI\",\"ml\"]"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"ai", "ml"}, got)

	got, err = FromRaw(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = FromRaw([]byte(`""`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = FromRaw([]byte(`42`))
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
