package service

import (
	"strconv"
	"time"

	"github.com/newsdesk/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultApprovalTTLHours = 24
)

// WorkflowSettingService 提供工作流设置的读取与更新能力。 It implements the
// WorkflowSettings interface over key/value rows, falling back to defaults
// when a key is absent or unreadable.
type WorkflowSettingService struct {
	db *gorm.DB
}

// WorkflowSettingsView aggregates the current values for the admin surface.
type WorkflowSettingsView struct {
	AllowSelfApproval bool `json:"allowSelfApproval"`
	ApprovalTTLHours  int  `json:"approvalTtlHours"`
}

// NewWorkflowSettingService 构造 WorkflowSettingService。
func NewWorkflowSettingService(gdb *gorm.DB) *WorkflowSettingService {
	return &WorkflowSettingService{db: gdb}
}

// AllowSelfApproval reports whether a requester may approve their own
// request. Off by default.
func (s *WorkflowSettingService) AllowSelfApproval() bool {
	value, err := s.get(db.SettingKeyAllowSelfApproval)
	if err != nil {
		return false
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return enabled
}

// ApprovalTTL returns the pending-request lifetime. 24h by default.
func (s *WorkflowSettingService) ApprovalTTL() time.Duration {
	value, err := s.get(db.SettingKeyApprovalTTLHours)
	if err != nil {
		return defaultApprovalTTLHours * time.Hour
	}
	hours, err := strconv.Atoi(value)
	if err != nil || hours <= 0 {
		return defaultApprovalTTLHours * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

// Settings returns the current values for display.
func (s *WorkflowSettingService) Settings() WorkflowSettingsView {
	return WorkflowSettingsView{
		AllowSelfApproval: s.AllowSelfApproval(),
		ApprovalTTLHours:  int(s.ApprovalTTL() / time.Hour),
	}
}

// SetAllowSelfApproval persists the self-approval flag.
func (s *WorkflowSettingService) SetAllowSelfApproval(enabled bool) error {
	return s.set(db.SettingKeyAllowSelfApproval, strconv.FormatBool(enabled))
}

// SetApprovalTTLHours persists the pending-request lifetime.
func (s *WorkflowSettingService) SetApprovalTTLHours(hours int) error {
	if hours <= 0 {
		return newValidationError("approval ttl must be positive")
	}
	return s.set(db.SettingKeyApprovalTTLHours, strconv.Itoa(hours))
}

func (s *WorkflowSettingService) get(key string) (string, error) {
	var setting db.WorkflowSetting
	if err := s.db.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *WorkflowSettingService) set(key, value string) error {
	return s.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&db.WorkflowSetting{Key: key, Value: value}).Error
}
