// Package frequency tallies token occurrences across a tokenized corpus.
//
// Rankings are deterministic: count descending, then the position of a word's
// first occurrence in the corpus (sequence order, then token order).
package frequency

import (
	"context"
	"sort"

	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/workers"
)

// DefaultTopN is the size of the derived top frequency table.
const DefaultTopN = 20

type Table struct {
	counts map[string]int
	first  map[string]int
	total  int
}

func NewTable() *Table {
	return &Table{counts: map[string]int{}, first: map[string]int{}}
}

// add records one token seen at the global corpus position pos.
func (t *Table) add(word string, pos int) {
	if _, ok := t.counts[word]; !ok {
		t.first[word] = pos
	} else if pos < t.first[word] {
		t.first[word] = pos
	}
	t.counts[word]++
	t.total++
}

// Count tallies every token of seqs in a single pass.
func Count(seqs []models.TokenSequence) *Table {
	t := NewTable()
	pos := 0
	for _, s := range seqs {
		for _, w := range s.Tokens {
			t.add(w, pos)
			pos++
		}
	}
	return t
}

// CountParallel splits seqs into contiguous spans, counts each span on its own
// partial table and merges the partials once. The result equals Count(seqs).
func CountParallel(ctx context.Context, seqs []models.TokenSequence, workerCount int) (*Table, error) {
	spans := workers.Split(len(seqs), workers.Limit(workerCount))
	if len(spans) <= 1 {
		return Count(seqs), ctx.Err()
	}

	// offsets[i] is the global position of the first token in spans[i]
	offsets := make([]int, len(spans))
	pos := 0
	for i, sp := range spans {
		offsets[i] = pos
		for _, s := range seqs[sp.Start:sp.End] {
			pos += len(s.Tokens)
		}
	}

	partials, err := workers.Map(ctx, len(spans), spans, func(_ context.Context, i int, sp workers.Span) *Table {
		t := NewTable()
		p := offsets[i]
		for _, s := range seqs[sp.Start:sp.End] {
			for _, w := range s.Tokens {
				t.add(w, p)
				p++
			}
		}
		return t
	})
	if err != nil {
		return nil, err
	}
	return Merge(partials...), nil
}

// Merge sums counts and keeps the earliest first occurrence of every word.
func Merge(tables ...*Table) *Table {
	out := NewTable()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for w, c := range t.counts {
			if first, ok := out.first[w]; !ok || t.first[w] < first {
				out.first[w] = t.first[w]
			}
			out.counts[w] += c
		}
		out.total += t.total
	}
	return out
}

// Total is the number of tokens counted. It always equals the sum of counts.
func (t *Table) Total() int {
	return t.total
}

// Len is the number of distinct words.
func (t *Table) Len() int {
	return len(t.counts)
}

// Sorted returns every word ranked by count descending, ties by first occurrence.
func (t *Table) Sorted() []models.WordCount {
	out := make([]models.WordCount, 0, len(t.counts))
	for w, c := range t.counts {
		out = append(out, models.WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return t.first[out[i].Word] < t.first[out[j].Word]
	})
	return out
}

// Top returns the first n entries of Sorted, or all of them when n <= 0.
func (t *Table) Top(n int) []models.WordCount {
	sorted := t.Sorted()
	if n > 0 && n < len(sorted) {
		return sorted[:n]
	}
	return sorted
}
