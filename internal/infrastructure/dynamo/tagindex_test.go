package dynamo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTagSortKey_OrdersByTime(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Nanosecond)
	t3 := t1.Add(time.Hour)

	assert.Less(t, tagSortKey(t1, "p1"), tagSortKey(t2, "p0"))
	assert.Less(t, tagSortKey(t2, "p0"), tagSortKey(t3, "p0"))
	assert.Equal(t, "2024-01-01T10:00:00.000000000Z#p1", tagSortKey(t1, "p1"))
}

func TestTagSortKey_NormalisesZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2024, 1, 1, 12, 0, 0, 0, loc)
	utc := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, tagSortKey(utc, "p"), tagSortKey(local, "p"))
}

func TestMergeTagHits_InterestScenario(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	t1, t3 := base, base.Add(2*time.Hour)

	// post1 ["go"] at t1, post2 ["python"] at t2, post3 ["rust","go"] at t3;
	// interests ["go","rust"] only query those two tags.
	goHits := []tagHit{
		{PostID: "post3", SortKey: tagSortKey(t3, "post3")},
		{PostID: "post1", SortKey: tagSortKey(t1, "post1")},
	}
	rustHits := []tagHit{
		{PostID: "post3", SortKey: tagSortKey(t3, "post3")},
	}

	ids := mergeTagHits([][]tagHit{goHits, rustHits}, nil, 10)
	assert.Equal(t, []string{"post3", "post1"}, ids)
}

func TestMergeTagHits_ExcludesViewed(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	hits := []tagHit{
		{PostID: "a", SortKey: tagSortKey(base.Add(3*time.Minute), "a")},
		{PostID: "b", SortKey: tagSortKey(base.Add(2*time.Minute), "b")},
		{PostID: "c", SortKey: tagSortKey(base.Add(1*time.Minute), "c")},
	}
	ids := mergeTagHits([][]tagHit{hits}, map[string]struct{}{"a": {}}, 10)
	assert.Equal(t, []string{"b", "c"}, ids)
}

func TestMergeTagHits_Limit(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var hits []tagHit
	for i := 0; i < 15; i++ {
		id := string(rune('a' + i))
		hits = append(hits, tagHit{PostID: id, SortKey: tagSortKey(base.Add(time.Duration(i)*time.Minute), id)})
	}
	ids := mergeTagHits([][]tagHit{hits}, nil, 10)
	assert.Len(t, ids, 10)
	assert.Equal(t, "o", ids[0])
}

func TestMergeTagHits_Empty(t *testing.T) {
	assert.Empty(t, mergeTagHits(nil, nil, 10))
}

func TestDiffTags(t *testing.T) {
	removed, added := diffTags([]string{"go", "rust"}, []string{"rust", "zig"})
	assert.Equal(t, []string{"go"}, removed)
	assert.Equal(t, []string{"zig"}, added)

	removed, added = diffTags([]string{"go"}, nil)
	assert.Nil(t, removed)
	assert.Nil(t, added)

	removed, added = diffTags([]string{"go"}, []string{"GO"})
	assert.Empty(t, removed)
	assert.Empty(t, added)
}
