package usecase

import (
	"errors"
	"fmt"
	"strings"

	"lensstock/internal/domain/stock"
)

// 入力チェックなど、ステータスだけ決まっているエラー
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 必須項目が足りない
type MissingFieldsError struct {
	Fields []string `json:"fields"`
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// 参照先がない（user / client / category / movement）
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func notFound(entity string, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// 存在しないSPH/CYL。0は問題なし
type InvalidReferenceError struct {
	SphID int64 `json:"sph_id,omitempty"`
	CylID int64 `json:"cyl_id,omitempty"`
}

func (e *InvalidReferenceError) Error() string {
	if e.SphID != 0 {
		return fmt.Sprintf("invalid sph reference: %d", e.SphID)
	}
	return fmt.Sprintf("invalid cyl reference: %d", e.CylID)
}

// 同じ(sph, cyl)が1リクエストに2回ある
type DuplicateLineItemError struct {
	SphID int64 `json:"sph_id"`
	CylID int64 `json:"cyl_id"`
}

func (e *DuplicateLineItemError) Error() string {
	return fmt.Sprintf("duplicate line item: sph=%d cyl=%d", e.SphID, e.CylID)
}

// 取消済み
var ErrAlreadyInactive = errors.New("movement is already inactive")

// DB・ロック由来の失敗。呼び出し側はリトライしてよい
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// 業務エラーはそのまま返す。それ以外はStorageError
func isDomainError(err error) bool {
	var (
		mf  *MissingFieldsError
		nf  *NotFoundError
		ir  *InvalidReferenceError
		dup *DuplicateLineItemError
		ise *stock.InsufficientStockError
		he  *HTTPError
	)
	switch {
	case errors.As(err, &mf), errors.As(err, &nf), errors.As(err, &ir),
		errors.As(err, &dup), errors.As(err, &ise), errors.As(err, &he):
		return true
	case errors.Is(err, ErrAlreadyInactive):
		return true
	}
	return false
}
