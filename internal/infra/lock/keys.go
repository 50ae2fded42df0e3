// Package lock はキー単位の排他を提供する。
// 複数キーは常に同じ順序で取る（ソート・重複除去）。
package lock

import (
	"errors"
	"sort"
)

// 待ち時間の上限を超えた
var ErrBusy = errors.New("lock busy")

func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
