package core

import (
	"math"
	"sort"

	"cropmap_service/internal/domain/model"
)

// Groups partitions records by a key. Keys keep the order in which they were
// first seen and every group keeps the input order of its records.
type Groups[K comparable] struct {
	Keys  []K
	Items map[K][]model.Record
}

func GroupBy[K comparable](records []model.Record, key func(model.Record) K) Groups[K] {
	g := Groups[K]{Items: make(map[K][]model.Record)}
	for _, r := range records {
		k := key(r)
		if _, ok := g.Items[k]; !ok {
			g.Keys = append(g.Keys, k)
		}
		g.Items[k] = append(g.Items[k], r)
	}
	return g
}

// Ranked is one entry of a Totals ranking.
type Ranked[K comparable] struct {
	Key   K
	Value float64
}

// Totals sums values per key and remembers insertion order for tie breaking.
type Totals[K comparable] struct {
	order []K
	sums  map[K]float64
}

func NewTotals[K comparable]() *Totals[K] {
	return &Totals[K]{sums: make(map[K]float64)}
}

func (t *Totals[K]) Add(key K, v float64) {
	if _, ok := t.sums[key]; !ok {
		t.order = append(t.order, key)
	}
	t.sums[key] += v
}

// AddSkipNaN adds v unless it is NaN. The key is still registered, so a key
// whose values are all missing ranks with a zero total.
func (t *Totals[K]) AddSkipNaN(key K, v float64) {
	if math.IsNaN(v) {
		v = 0
	}
	t.Add(key, v)
}

func (t *Totals[K]) Len() int {
	return len(t.order)
}

func (t *Totals[K]) Get(key K) float64 {
	return t.sums[key]
}

// Top returns at most n entries by descending value. Equal values stay in
// insertion order. NaN sums sort last.
func (t *Totals[K]) Top(n int) []Ranked[K] {
	ranked := make([]Ranked[K], len(t.order))
	for i, k := range t.order {
		ranked[i] = Ranked[K]{Key: k, Value: t.sums[k]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Value, ranked[j].Value
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func coordinates(records []model.Record) []model.Coordinate {
	out := make([]model.Coordinate, len(records))
	for i, r := range records {
		out[i] = r.Coordinate()
	}
	return out
}
