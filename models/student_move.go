package models

import "time"

const (
	MoveStatusPending   = "pending"
	MoveStatusDone      = "done"
	MoveStatusRepaired  = "repaired"  // finished by startup reconciliation
	MoveStatusAbandoned = "abandoned" // target never written, source untouched
)

// StudentMove is one journal line per moved student. It is written before
// any roster write and closed afterwards, so an interrupted move can be
// found and finished on the next start.
type StudentMove struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	BatchID string `gorm:"size:36;index;not null" json:"batch_id"`

	Name string `gorm:"size:200;not null" json:"name"`

	FromStage      string `gorm:"size:100;not null" json:"from_stage"`
	FromDepartment string `gorm:"size:100;not null" json:"from_department"`
	ToStage        string `gorm:"size:100;not null" json:"to_stage"`
	ToDepartment   string `gorm:"size:100;not null" json:"to_department"`

	Status   string    `gorm:"size:20;not null;index" json:"status"`
	MoveDate time.Time `json:"move_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m StudentMove) From() Partition {
	return Partition{Stage: m.FromStage, Department: m.FromDepartment}
}

func (m StudentMove) To() Partition {
	return Partition{Stage: m.ToStage, Department: m.ToDepartment}
}
