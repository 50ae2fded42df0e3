package stock

import "fmt"

// 消費したい明細1行
type Request struct {
	SphID    int64
	CylID    int64
	Quantity int64
}

func (r Request) Key() Key {
	return Key{SphID: r.SphID, CylID: r.CylID}
}

// 在庫不足
type InsufficientStockError struct {
	CategoryID int64 `json:"category_id"`
	SphID      int64 `json:"sph_id"`
	CylID      int64 `json:"cyl_id"`
	Requested  int64 `json:"requested"`
	Available  int64 `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock: category=%d sph=%d cyl=%d requested=%d available=%d",
		e.CategoryID, e.SphID, e.CylID, e.Requested, e.Available,
	)
}

// Validateは入力順に在庫を確認し、通った行はその場で消費する。
// 同じキーが複数行あっても、2行目は1行目を引いた残りで判定される。
// 最初の不足で止まる。aは途中まで消費された状態で残るので捨てること。
func Validate(a *Availability, reqs []Request) error {
	for _, r := range reqs {
		k := r.Key()
		available := a.Available(k)
		if r.Quantity > available {
			return &InsufficientStockError{
				CategoryID: a.CategoryID,
				SphID:      r.SphID,
				CylID:      r.CylID,
				Requested:  r.Quantity,
				Available:  available,
			}
		}
		a.Consume(k, r.Quantity)
	}
	return nil
}
