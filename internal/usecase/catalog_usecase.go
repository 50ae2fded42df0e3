package usecase

import (
	"context"
	"net/http"
	"strings"

	"lensstock/internal/domain/model"
	repo "lensstock/internal/repository"

	"go.uber.org/zap"
)

// カテゴリ・度数・顧客の参照系と在庫一覧
type CatalogUsecase struct {
	tx     repo.TransactionManager
	report repo.StockReportReader
	log    *zap.Logger
}

// DI
func NewCatalogUsecase(tx repo.TransactionManager, report repo.StockReportReader, log *zap.Logger) *CatalogUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogUsecase{tx: tx, report: report, log: log}
}

type PageInput struct {
	Page  int
	Limit int
	Q     string
}

func (in PageInput) validate() error {
	if in.Page < 1 {
		return NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return NewHTTPError(http.StatusBadRequest, "invalid q")
	}
	return nil
}

type PageOutput[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

func newPage[T any](items []T, total int64, in PageInput) PageOutput[T] {
	return PageOutput[T]{
		Items:      items,
		Total:      total,
		Page:       in.Page,
		Limit:      in.Limit,
		TotalPages: (total + int64(in.Limit) - 1) / int64(in.Limit),
	}
}

func (u *CatalogUsecase) ListCategories(ctx context.Context, in PageInput) (PageOutput[model.Category], error) {
	if err := in.validate(); err != nil {
		return PageOutput[model.Category]{}, err
	}
	var out PageOutput[model.Category]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Catalog().ListCategories(ctx, repo.PageQuery{Page: in.Page, Limit: in.Limit, Q: in.Q})
		if err != nil {
			return err
		}
		out = newPage(items, total, in)
		return nil
	})
	if err != nil {
		return PageOutput[model.Category]{}, u.fail("list categories", err)
	}
	return out, nil
}

func (u *CatalogUsecase) ListClients(ctx context.Context, in PageInput) (PageOutput[model.Client], error) {
	if err := in.validate(); err != nil {
		return PageOutput[model.Client]{}, err
	}
	var out PageOutput[model.Client]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Catalog().ListClients(ctx, repo.PageQuery{Page: in.Page, Limit: in.Limit, Q: in.Q})
		if err != nil {
			return err
		}
		out = newPage(items, total, in)
		return nil
	})
	if err != nil {
		return PageOutput[model.Client]{}, u.fail("list clients", err)
	}
	return out, nil
}

type CreateClientInput struct {
	FullName string
	Address  string
}

func (u *CatalogUsecase) CreateClient(ctx context.Context, in CreateClientInput) (model.Client, error) {
	c := model.Client{
		FullName: strings.TrimSpace(in.FullName),
		Address:  strings.TrimSpace(in.Address),
	}
	var missing []string
	if c.FullName == "" {
		missing = append(missing, "full_name")
	}
	if c.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return model.Client{}, &MissingFieldsError{Fields: missing}
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Catalog().CreateClient(ctx, &c)
	})
	if err != nil {
		return model.Client{}, u.fail("create client", err)
	}
	return c, nil
}

// signは positive / negative / all（空はall）
func (u *CatalogUsecase) ListSph(ctx context.Context, sign string) ([]model.Sph, error) {
	s := repo.SphSign(strings.ToLower(strings.TrimSpace(sign)))
	switch s {
	case "":
		s = repo.SphAll
	case repo.SphAll, repo.SphPositive, repo.SphNegative:
	default:
		return nil, NewHTTPError(http.StatusBadRequest, "invalid sign")
	}

	var out []model.Sph
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		out, err = r.Catalog().ListSph(ctx, s)
		return err
	})
	if err != nil {
		return nil, u.fail("list sph", err)
	}
	return out, nil
}

func (u *CatalogUsecase) ListCyl(ctx context.Context) ([]model.Cyl, error) {
	var out []model.Cyl
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		out, err = r.Catalog().ListCyl(ctx)
		return err
	})
	if err != nil {
		return nil, u.fail("list cyl", err)
	}
	return out, nil
}

type StockReportOutput struct {
	Category model.Category  `json:"category"`
	Rows     []repo.StockRow `json:"rows"`
}

// カテゴリの在庫一覧（SPH, CYLの値順）
func (u *CatalogUsecase) StockReport(ctx context.Context, categoryID int64) (StockReportOutput, error) {
	if categoryID <= 0 {
		return StockReportOutput{}, &MissingFieldsError{Fields: []string{"category_id"}}
	}

	var cat model.Category
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		cat, err = r.Catalog().FindCategory(ctx, categoryID)
		return mapNotFound(err, "category", categoryID)
	})
	if err != nil {
		return StockReportOutput{}, u.fail("stock report", err)
	}

	rows, err := u.report.StockByCategory(ctx, categoryID)
	if err != nil {
		return StockReportOutput{}, u.fail("stock report", err)
	}
	return StockReportOutput{Category: cat, Rows: rows}, nil
}

func (u *CatalogUsecase) fail(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	u.log.Error("catalog storage failure", zap.String("op", op), zap.Error(err))
	return &StorageError{Op: op, Err: err}
}
