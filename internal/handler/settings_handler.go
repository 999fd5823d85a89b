package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk/internal/permission"
	"github.com/newsdesk/internal/service"
)

// GetWorkflowSettings returns the runtime workflow knobs. Global admin.
func (a *API) GetWorkflowSettings(c *gin.Context) {
	if !currentPrincipal(c).IsGlobalAdmin() {
		writeServiceError(c, &service.PermissionError{Required: permission.RoleAdmin, Topic: permission.GlobalTopic})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": a.settings.Settings()})
}

// UpdateWorkflowSettings changes the self-approval flag and/or the approval
// TTL. Global admin.
func (a *API) UpdateWorkflowSettings(c *gin.Context) {
	if !currentPrincipal(c).IsGlobalAdmin() {
		writeServiceError(c, &service.PermissionError{Required: permission.RoleAdmin, Topic: permission.GlobalTopic})
		return
	}

	var payload struct {
		AllowSelfApproval *bool `json:"allowSelfApproval"`
		ApprovalTTLHours  *int  `json:"approvalTtlHours"`
	}
	if !bindJSON(c, &payload, "invalid settings payload") {
		return
	}

	if payload.AllowSelfApproval != nil {
		if err := a.settings.SetAllowSelfApproval(*payload.AllowSelfApproval); err != nil {
			writeServiceError(c, err)
			return
		}
	}
	if payload.ApprovalTTLHours != nil {
		if err := a.settings.SetApprovalTTLHours(*payload.ApprovalTTLHours); err != nil {
			writeServiceError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"settings": a.settings.Settings()})
}
