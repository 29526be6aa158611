package model

import "time"

// カタログ管理操作の種類。
type AuditAction string

const (
	AuditActionCreateContractType AuditAction = "CREATE_CONTRACT_TYPE"
	AuditActionUpdateContractType AuditAction = "UPDATE_CONTRACT_TYPE"
	AuditActionDeleteContractType AuditAction = "DELETE_CONTRACT_TYPE"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceContractType AuditResourceType = "contract_type"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作した管理者のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	//対象の種類。
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//変更前後のスナップショット。JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
