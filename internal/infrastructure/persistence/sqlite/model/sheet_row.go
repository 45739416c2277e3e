package model

type SheetRow struct {
	RowID     uint64 `gorm:"column:row_id;primaryKey;autoIncrement"`
	Sheet     string `gorm:"column:sheet;type:text;not null;index"`
	Cells     string `gorm:"column:cells;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (SheetRow) TableName() string {
	return "sheet_rows"
}

// All returns every model owned by the local sheet backend.
func All() []any {
	return []any{&SheetHeader{}, &SheetRow{}}
}
