package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionRegister        = "REGISTER"
	ActionActivateAccount = "ACTIVATE_ACCOUNT"
	ActionCreateOrder     = "CREATE_ORDER"
	ActionUploadProof     = "UPLOAD_PROOF"
	ActionVerifyPayment   = "VERIFY_PAYMENT"
	ActionApproveOrder    = "APPROVE_ORDER"
	ActionLogisticsUpdate = "LOGISTICS_UPDATE"
)

// SystemActor is recorded as the acting principal for actions not tied to
// a logged-in user (e.g. self-registration).
const SystemActor = "SYSTEM"

// AuditLog tracks who did what and when. Rows are append-only: the engine
// writes one per mutating operation and nothing ever updates or deletes them.
type AuditLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PerformedBy string     `gorm:"type:varchar(255);not null;index" json:"performed_by"` // user email or SYSTEM
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID" json:"-"`
	Action      string     `gorm:"type:varchar(50);not null;index" json:"action"`
	TargetID    string     `gorm:"type:varchar(100);index" json:"target_id"` // order code, product or user id
	Details     string     `gorm:"type:text" json:"details"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}
