// Package partition splits rows by user and fans work out over the
// partitions with a bounded number of goroutines.
package partition

import (
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Group is one user's rows in input order.
type Group[T any] struct {
	Key  string
	Rows []T
}

// ByKey groups rows by key(row) and returns the groups sorted by key.
func ByKey[T any](rows []T, key func(T) string) []Group[T] {
	idx := make(map[string]int)
	var groups []Group[T]
	for _, r := range rows {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, Group[T]{Key: k})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	slices.SortFunc(groups, func(a, b Group[T]) int {
		return strings.Compare(a.Key, b.Key)
	})
	return groups
}

// Workers resolves a configured worker count; n <= 0 means GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Map applies fn to every group using at most workers goroutines and
// concatenates the results in group order, so the output does not depend
// on scheduling.
func Map[T, R any](groups []Group[T], workers int, fn func(Group[T]) []R) []R {
	results := make([][]R, len(groups))

	var g errgroup.Group
	g.SetLimit(Workers(workers))
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			results[i] = fn(grp)
			return nil
		})
	}
	_ = g.Wait()

	var n int
	for _, r := range results {
		n += len(r)
	}
	out := make([]R, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
