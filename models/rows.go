package models

// Row types used by the SQL backend. The JSON backend stores the document
// shapes above directly.

type StudentRow struct {
	ID         uint   `gorm:"primaryKey"`
	Stage      string `gorm:"size:100;not null;uniqueIndex:idx_student_partition_name"`
	Department string `gorm:"size:100;not null;uniqueIndex:idx_student_partition_name"`
	Name       string `gorm:"size:200;not null;uniqueIndex:idx_student_partition_name"`
}

func (StudentRow) TableName() string { return "students" }

type EventRow struct {
	ID         uint   `gorm:"primaryKey"`
	Stage      string `gorm:"size:100;not null;index:idx_event_partition"`
	Department string `gorm:"size:100;not null;index:idx_event_partition"`
	StudentKey string `gorm:"size:400;not null;index"`
	Date       string `gorm:"size:10;not null"` // YYYY-MM-DD
	Seq        int    `gorm:"not null"`         // insertion order within the day
	Kind       string `gorm:"size:20;not null"`
	Time       string `gorm:"size:10;not null"`
}

func (EventRow) TableName() string { return "attendance_events" }

type CardRow struct {
	CardID     string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"size:200;not null"`
	Stage      string `gorm:"size:100;not null"`
	Department string `gorm:"size:100;not null"`
}

func (CardRow) TableName() string { return "cards" }

type CatalogRow struct {
	ID         uint   `gorm:"primaryKey"`
	Stage      string `gorm:"size:100;not null;uniqueIndex:idx_catalog_partition"`
	Department string `gorm:"size:100;not null;uniqueIndex:idx_catalog_partition"`
	Position   int    `gorm:"not null"`
}

func (CatalogRow) TableName() string { return "catalog" }
