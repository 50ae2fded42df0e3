package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lensstock/internal/domain/model"
	"lensstock/internal/domain/stock"
	repo "lensstock/internal/repository"
)

const dateLayout = "2006-01-02"

type ListMovementsInput struct {
	Kind  model.MovementKind
	Page  int
	Limit int
	// YYYY-MM-DD。空なら全期間
	Date string
}

type MovementListOutput struct {
	Items      []model.Movement `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int64            `json:"total_pages"`
}

func (u *MovementUsecase) List(ctx context.Context, in ListMovementsInput) (MovementListOutput, error) {
	if !in.Kind.Valid() {
		return MovementListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid type")
	}
	if in.Page < 1 {
		return MovementListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return MovementListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	q := repo.MovementListQuery{Kind: in.Kind, Page: in.Page, Limit: in.Limit}
	if d := strings.TrimSpace(in.Date); d != "" {
		day, err := time.ParseInLocation(dateLayout, d, time.UTC)
		if err != nil {
			return MovementListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		q.Day = &day
	}

	var out MovementListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Movements().List(ctx, q)
		if err != nil {
			return err
		}
		out = MovementListOutput{
			Items:      items,
			Total:      total,
			Page:       in.Page,
			Limit:      in.Limit,
			TotalPages: (total + int64(in.Limit) - 1) / int64(in.Limit),
		}
		return nil
	})
	if err != nil {
		return MovementListOutput{}, u.fail("list movements", err)
	}
	return out, nil
}

func (u *MovementUsecase) Get(ctx context.Context, id string) (model.Movement, error) {
	if strings.TrimSpace(id) == "" {
		return model.Movement{}, &MissingFieldsError{Fields: []string{"id"}}
	}

	var m model.Movement
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		m, err = r.Movements().FindByID(ctx, id)
		return mapNotFound(err, "movement", id)
	})
	if err != nil {
		return model.Movement{}, u.fail("get movement", err)
	}
	return m, nil
}

type AvailabilityOutput struct {
	CategoryID int64 `json:"category_id"`
	SphID      int64 `json:"sph_id"`
	CylID      int64 `json:"cyl_id"`
	Income     int64 `json:"income"`
	Consumed   int64 `json:"consumed"`
	Available  int64 `json:"available"`
}

// GetAvailabilityは(category, sph, cyl)の在庫を履歴から計算する。ロックは取らない
func (u *MovementUsecase) GetAvailability(ctx context.Context, categoryID, sphID, cylID int64) (AvailabilityOutput, error) {
	var missing []string
	if categoryID <= 0 {
		missing = append(missing, "category_id")
	}
	if sphID <= 0 {
		missing = append(missing, "sph_id")
	}
	if cylID <= 0 {
		missing = append(missing, "cyl_id")
	}
	if len(missing) > 0 {
		return AvailabilityOutput{}, &MissingFieldsError{Fields: missing}
	}

	var out AvailabilityOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Catalog().FindCategory(ctx, categoryID); err != nil {
			return mapNotFound(err, "category", categoryID)
		}
		if _, err := r.Catalog().FindSph(ctx, sphID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return &InvalidReferenceError{SphID: sphID}
			}
			return err
		}
		if _, err := r.Catalog().FindCyl(ctx, cylID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return &InvalidReferenceError{CylID: cylID}
			}
			return err
		}

		items, err := r.LineItems().ListActive(ctx, repo.LineItemQuery{CategoryID: categoryID, SphID: &sphID, CylID: &cylID})
		if err != nil {
			return err
		}
		t := stock.Aggregate(categoryID, items).Of(stock.Key{SphID: sphID, CylID: cylID})
		out = AvailabilityOutput{
			CategoryID: categoryID,
			SphID:      sphID,
			CylID:      cylID,
			Income:     t.Income,
			Consumed:   t.Consumed,
			Available:  t.Available(),
		}
		return nil
	})
	if err != nil {
		return AvailabilityOutput{}, u.fail("get availability", err)
	}
	return out, nil
}
