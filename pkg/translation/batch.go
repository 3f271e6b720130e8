package translation

import (
	"fmt"
	"iter"
)

// Batch 一次调用翻译能力的文本单元分组
type Batch struct {
	Index int
	Units []TextUnit
}

// Len 单元数
func (b Batch) Len() int {
	return len(b.Units)
}

// Texts 按顺序返回各单元原文
func (b Batch) Texts() []string {
	texts := make([]string, len(b.Units))
	for i, u := range b.Units {
		texts[i] = u.Text
	}
	return texts
}

// ChapterRange 批次覆盖的章节下标范围（闭区间）
func (b Batch) ChapterRange() (from, to int) {
	if len(b.Units) == 0 {
		return -1, -1
	}
	return b.Units[0].Chapter, b.Units[len(b.Units)-1].Chapter
}

// UnitRange 批次覆盖的单元序号范围（闭区间）
func (b Batch) UnitRange() (from, to int) {
	if len(b.Units) == 0 {
		return -1, -1
	}
	return b.Units[0].Seq, b.Units[len(b.Units)-1].Seq
}

// MakeBatches 将单元序列按固定大小切分，最后一批可以更小。
// 批次按顺序拼接即为原序列。
func MakeBatches(units iter.Seq[TextUnit], size int) ([]Batch, error) {
	if size < 1 {
		return nil, NewConfigError(fmt.Sprintf("batch_size must be >= 1, got %d", size))
	}
	var (
		batches []Batch
		cur     []TextUnit
	)
	for u := range units {
		cur = append(cur, u)
		if len(cur) == size {
			batches = append(batches, Batch{Index: len(batches), Units: cur})
			cur = nil
		}
	}
	if len(cur) > 0 {
		batches = append(batches, Batch{Index: len(batches), Units: cur})
	}
	return batches, nil
}
