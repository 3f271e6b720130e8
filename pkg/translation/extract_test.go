package translation

import (
	"errors"
	"testing"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(b *book.Book, opts ...ExtractOption) []TextUnit {
	var units []TextUnit
	for u := range Extract(b, opts...) {
		units = append(units, u)
	}
	return units
}

func TestExtractDocumentOrder(t *testing.T) {
	units := collect(sampleBook())
	require.Len(t, units, 5)

	want := []struct {
		chapter int
		path    string
		text    string
	}{
		{0, "/0/0/0/0", "Title"},
		{0, "/0/0/2/0", "Hello "},
		{0, "/0/0/2/1/0", "world"},
		{1, "/0/0/0/0", "Second"},
		{1, "/0/0/1/0/0", "chapter"},
	}
	for i, w := range want {
		assert.Equal(t, i, units[i].Seq)
		assert.Equal(t, w.chapter, units[i].Chapter)
		assert.Equal(t, w.path, units[i].Path.String())
		assert.Equal(t, w.text, units[i].Text)
	}
}

func TestExtractRestartable(t *testing.T) {
	b := sampleBook()
	seq := Extract(b)

	var first, second []TextUnit
	for u := range seq {
		first = append(first, u)
	}
	for u := range seq {
		second = append(second, u)
	}
	assert.Equal(t, first, second)

	// 提前结束遍历
	var taken []TextUnit
	for u := range seq {
		taken = append(taken, u)
		if len(taken) == 2 {
			break
		}
	}
	assert.Equal(t, first[:2], taken)
}

func TestExtractSkipsInvisibleText(t *testing.T) {
	b := sampleBook()
	body := b.Chapters[1].Nodes[0].Children[0]
	body.Children = append(body.Children,
		book.Element("script", book.Attrs("type", "text/javascript"), book.Text("var x = 1;")),
		book.Element("svg:style", nil, book.Text(".a{}")),
	)

	assert.Len(t, collect(b), 5)
	assert.Len(t, collect(b, WithSkipTags()), 7)
	assert.Len(t, collect(b, WithSkipTags("em")), 6)
}

func TestExtractChapter(t *testing.T) {
	b := sampleBook()
	var units []TextUnit
	for u := range ExtractChapter(b.Chapters[1]) {
		units = append(units, u)
	}
	require.Len(t, units, 2)
	assert.Equal(t, 0, units[0].Seq)
	assert.Equal(t, 1, units[0].Chapter)
}

func TestMakeBatches(t *testing.T) {
	b := sampleBook()
	all := collect(b)

	tests := []struct {
		size  int
		sizes []int
	}{
		{1, []int{1, 1, 1, 1, 1}},
		{2, []int{2, 2, 1}},
		{4, []int{4, 1}},
		{5, []int{5}},
		{100, []int{5}},
	}
	for _, tt := range tests {
		batches, err := MakeBatches(Extract(b), tt.size)
		require.NoError(t, err)

		var sizes []int
		var joined []TextUnit
		for i, bt := range batches {
			assert.Equal(t, i, bt.Index)
			sizes = append(sizes, bt.Len())
			joined = append(joined, bt.Units...)
		}
		assert.Equal(t, tt.sizes, sizes, "size %d", tt.size)
		assert.Equal(t, all, joined, "batches partition the unit sequence")
	}
}

func TestMakeBatchesRanges(t *testing.T) {
	batches, err := MakeBatches(Extract(sampleBook()), 4)
	require.NoError(t, err)

	from, to := batches[0].ChapterRange()
	assert.Equal(t, []int{0, 1}, []int{from, to})
	from, to = batches[0].UnitRange()
	assert.Equal(t, []int{0, 3}, []int{from, to})
	from, to = batches[1].UnitRange()
	assert.Equal(t, []int{4, 4}, []int{from, to})
	assert.Equal(t, []string{"chapter"}, batches[1].Texts())

	from, to = Batch{}.ChapterRange()
	assert.Equal(t, []int{-1, -1}, []int{from, to})
}

func TestMakeBatchesInvalidSize(t *testing.T) {
	for _, size := range []int{0, -3} {
		_, err := MakeBatches(Extract(sampleBook()), size)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	}
}
