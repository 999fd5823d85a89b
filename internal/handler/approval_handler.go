package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk/internal/db"
)

func approvalJSON(req *db.ApprovalRequest) gin.H {
	return gin.H{
		"id":          req.ID,
		"articleId":   req.ArticleID,
		"requestedBy": req.RequestedBy,
		"requestedAt": req.RequestedAt,
		"editorNotes": req.EditorNotes,
		"status":      req.Status,
		"reviewedBy":  req.ReviewedBy,
		"reviewedAt":  req.ReviewedAt,
		"reviewNotes": req.ReviewNotes,
		"expiresAt":   req.ExpiresAt,
	}
}

// CreateApprovalRequest opens a review round for the article.
func (a *API) CreateApprovalRequest(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	// 请求体可以为空
	_ = c.ShouldBindJSON(&payload)

	req, err := a.approvals.Request(c.Request.Context(), id, currentPrincipal(c), payload.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": req.ID, "expiresAt": req.ExpiresAt})
}

// DecideApproval approves or rejects the pending request of an article.
func (a *API) DecideApproval(c *gin.Context) {
	articleID, err := parseUintParam(c, "articleId")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload struct {
		Approved *bool  `json:"approved"`
		Notes    string `json:"notes"`
	}
	if !bindJSON(c, &payload, "invalid decision payload") {
		return
	}
	if payload.Approved == nil {
		respondError(c, http.StatusBadRequest, "approved is required")
		return
	}

	article, err := a.approvals.Decide(c.Request.Context(), articleID, *payload.Approved, currentPrincipal(c), payload.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"newStatus": article.Status})
}

// CancelApproval withdraws a pending request by its id.
func (a *API) CancelApproval(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.approvals.Cancel(c.Request.Context(), id, currentPrincipal(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListApprovals surfaces pending requests, optionally per topic.
func (a *API) ListApprovals(c *gin.Context) {
	reqs, err := a.approvals.ListPending(c.Request.Context(), c.Query("topic"), currentPrincipal(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(reqs))
	for i := range reqs {
		items = append(items, approvalJSON(&reqs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"approvals": items})
}
