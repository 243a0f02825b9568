package journal

import (
	"gorm.io/gorm"

	"intake-app/idgen"
	"intake-app/types"
)

// ScanEvent is one audit row per scan attempt. Advisory only: the journal
// is never read back into a live session.
type ScanEvent struct {
	gorm.Model
	ID        types.SnowflakeID `json:"id" gorm:"primaryKey"`
	SessionID string            `json:"session_id" gorm:"index"`
	Scope     string            `json:"scope"`
	Code      string            `json:"code"`
	Outcome   string            `json:"outcome"`
	Reason    string            `json:"reason"`
	Quantity  int               `json:"quantity"`
	BoxNo     int               `json:"box_no"`
	CreatedBy int               `json:"created_by"`
}

// SubmissionLog records the result of each bulk submission attempt.
type SubmissionLog struct {
	gorm.Model
	ID         types.SnowflakeID `json:"id" gorm:"primaryKey"`
	SessionID  string            `json:"session_id" gorm:"index"`
	Scope      string            `json:"scope"`
	Reference  string            `json:"reference"`
	LineCount  int               `json:"line_count"`
	TotalQty   int               `json:"total_qty"`
	Success    bool              `json:"success"`
	FailReason string            `json:"fail_reason"`
	CreatedBy  int               `json:"created_by"`
}

func (e *ScanEvent) BeforeCreate(tx *gorm.DB) (err error) {
	e.ID = types.SnowflakeID(idgen.GenerateID())
	return
}

func (l *SubmissionLog) BeforeCreate(tx *gorm.DB) (err error) {
	l.ID = types.SnowflakeID(idgen.GenerateID())
	return
}
