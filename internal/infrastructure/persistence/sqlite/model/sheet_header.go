package model

// SheetHeader holds the header row of one local sheet as a JSON array.
type SheetHeader struct {
	Sheet     string `gorm:"column:sheet;type:text;primaryKey"`
	Cells     string `gorm:"column:cells;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (SheetHeader) TableName() string {
	return "sheet_headers"
}
