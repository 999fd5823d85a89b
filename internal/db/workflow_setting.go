package db

import "gorm.io/gorm"

// WorkflowSetting 存储可配置的工作流键值对。
type WorkflowSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (WorkflowSetting) TableName() string {
	return "workflow_settings"
}

const (
	// SettingKeyAllowSelfApproval controls whether the requester of an
	// approval may decide it themselves. Off unless explicitly enabled.
	SettingKeyAllowSelfApproval = "allow_self_approval"
	// SettingKeyApprovalTTLHours is the pending-request lifetime in hours.
	SettingKeyApprovalTTLHours = "approval_ttl_hours"
)
