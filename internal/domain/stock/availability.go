// Package stock は在庫の可用数を明細の履歴から毎回計算する。
// 残高カラムは持たない（履歴の再計算が唯一の正）。
package stock

import (
	"fmt"
	"sort"

	"lensstock/internal/domain/model"
)

// カテゴリ内の在庫キー（SPH×CYL）
type Key struct {
	SphID int64 `json:"sph_id"`
	CylID int64 `json:"cyl_id"`
}

// ロックキー。カテゴリを含めて一意にする。
func (k Key) LockKey(categoryID int64) string {
	return fmt.Sprintf("stock:%d:%d:%d", categoryID, k.SphID, k.CylID)
}

// キー1つ分の入庫・消費の合計
type Tally struct {
	Income   int64 `json:"income"`
	Consumed int64 `json:"consumed"`
}

func (t Tally) Available() int64 {
	return t.Income - t.Consumed
}

// Availabilityはカテゴリ1つ分の在庫表。
// Validateの途中経過を持つので、使い回さずリクエストごとに作る。
type Availability struct {
	CategoryID int64
	tallies    map[Key]Tally
}

// Aggregateは有効な明細を集計する。
// income は Income に、sale/output は Consumed に積む。他カテゴリ・無効な明細は無視。
func Aggregate(categoryID int64, items []model.LineItem) *Availability {
	a := &Availability{
		CategoryID: categoryID,
		tallies:    make(map[Key]Tally),
	}
	for _, li := range items {
		if !li.IsActive || li.CategoryID != categoryID {
			continue
		}
		k := Key{SphID: li.SphID, CylID: li.CylID}
		t := a.tallies[k]
		switch {
		case li.Kind == model.MovementIncome:
			t.Income += li.Quantity
		case li.Kind.Consumes():
			t.Consumed += li.Quantity
		default:
			continue
		}
		a.tallies[k] = t
	}
	return a
}

func (a *Availability) Of(k Key) Tally {
	return a.tallies[k]
}

func (a *Availability) Available(k Key) int64 {
	return a.tallies[k].Available()
}

// 消費を積む
func (a *Availability) Consume(k Key, qty int64) {
	t := a.tallies[k]
	t.Consumed += qty
	a.tallies[k] = t
}

// 消費を戻す（更新時に自分の明細分を差し戻すなど）
func (a *Availability) Release(k Key, qty int64) {
	t := a.tallies[k]
	t.Consumed -= qty
	a.tallies[k] = t
}

// SPH, CYL の順で並べたキー
func (a *Availability) Keys() []Key {
	keys := make([]Key, 0, len(a.tallies))
	for k := range a.tallies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SphID != keys[j].SphID {
			return keys[i].SphID < keys[j].SphID
		}
		return keys[i].CylID < keys[j].CylID
	})
	return keys
}
