package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/domain/intake"
	"kiccms/internal/errs"
	"kiccms/internal/infrastructure/persistence/sqlite/model"
	"kiccms/internal/ports"
)

// TabularStore keeps a sheet in the local database: one header row and an
// append-only list of data rows per sheet name.
type TabularStore struct {
	db    *gorm.DB
	uow   ports.UnitOfWork
	sheet string
	clock ports.Clock
}

var _ ports.TabularStore = (*TabularStore)(nil)

func NewTabularStore(db *gorm.DB, uow ports.UnitOfWork, sheet string, clock ports.Clock) *TabularStore {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Sheet1"
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &TabularStore{db: db, uow: uow, sheet: sheet, clock: clock}
}

func (r *TabularStore) Location() string {
	return config.SheetBackendSQLite + ":" + r.sheet
}

func (r *TabularStore) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// FetchRows returns the header followed by data rows in append order. A
// sheet that was never seeded yields no rows at all.
func (r *TabularStore) FetchRows(ctx context.Context) ([][]string, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	header, found, err := r.header(db)
	if err != nil {
		return nil, err
	}
	if !found {
		return [][]string{}, nil
	}

	var rows []model.SheetRow
	if err := db.
		Where("sheet = ?", r.sheet).
		Order("row_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query sheet rows")
	}

	out := make([][]string, 0, len(rows)+1)
	out = append(out, header)
	for _, row := range rows {
		cells, err := decodeCells(row.Cells)
		if err != nil {
			return nil, errs.Wrapf(err, "decode sheet row %d", row.RowID)
		}
		out = append(out, cells)
	}
	return out, nil
}

// AppendRow inserts after the current last row. It refuses to append to a
// sheet without a header.
func (r *TabularStore) AppendRow(ctx context.Context, row []string) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	return r.uow.WithTx(ctx, func(txCtx context.Context) error {
		db, err := r.dbFromContext(txCtx)
		if err != nil {
			return err
		}

		_, found, err := r.header(db)
		if err != nil {
			return err
		}
		if !found {
			return errs.E(errs.KindSchema, intake.ErrHeaderMissing)
		}

		cells, err := encodeCells(row)
		if err != nil {
			return err
		}
		record := model.SheetRow{
			Sheet:     r.sheet,
			Cells:     cells,
			CreatedAt: r.clock.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := db.Create(&record).Error; err != nil {
			return errs.Wrap(err, "insert sheet row")
		}
		return nil
	})
}

// SeedHeader writes the header row when the sheet has none yet. It
// reports whether a header was written.
func (r *TabularStore) SeedHeader(ctx context.Context, header []string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}
	if len(header) == 0 {
		return false, errs.E(errs.KindValidation, errors.New("header is empty"))
	}

	cells, err := encodeCells(header)
	if err != nil {
		return false, err
	}
	row := model.SheetHeader{
		Sheet:     r.sheet,
		Cells:     cells,
		UpdatedAt: r.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sheet"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert sheet header")
	}
	return result.RowsAffected > 0, nil
}

func (r *TabularStore) header(db *gorm.DB) ([]string, bool, error) {
	var row model.SheetHeader
	err := db.Where("sheet = ?", r.sheet).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(err, "query sheet header")
	}
	cells, err := decodeCells(row.Cells)
	if err != nil {
		return nil, false, errs.Wrap(err, "decode sheet header")
	}
	return cells, true, nil
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	raw, err := json.Marshal(cells)
	if err != nil {
		return "", errs.Wrap(err, "encode cells")
	}
	return string(raw), nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	if cells == nil {
		cells = []string{}
	}
	return cells, nil
}
