package article

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"Agile", Agile},
		{" DevOps ", DevOps},
		{"Architecture/Infra", ArchitectureInfra},
		{"Leadership", Leadership},
		{"", None},
		{"Gardening", Other},
		{"devops", Other},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategory(tt.in))
		})
	}
}

func TestCategoryBucketAndLabel(t *testing.T) {
	assert.Equal(t, Other, None.Bucket())
	assert.Equal(t, Other, Other.Bucket())
	assert.Equal(t, DevOps, DevOps.Bucket())
	assert.Equal(t, UncategorizedName, None.String())
	assert.Equal(t, "architecture", ArchitectureInfra.Label())
	assert.Equal(t, "uncategorized", Other.Label())
	assert.False(t, Other.Official())
}

func TestItemJSON(t *testing.T) {
	in := Item{Title: "T", URL: "https://x", Category: ArchitectureInfra, Confidence: 0.5}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"category":"Architecture/Infra"`)

	var out Item
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	raw, err = json.Marshal(Item{Title: "no category"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "category\"")
}

func TestItemPublished(t *testing.T) {
	ts, ok := Item{PublishedDate: "2024-05-01T10:00:00Z"}.Published()
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	_, ok = Item{PublishedDate: "2024-05-01"}.Published()
	assert.True(t, ok)

	_, ok = Item{}.Published()
	assert.False(t, ok)

	_, ok = Item{PublishedDate: "yesterday"}.Published()
	assert.False(t, ok)
}
