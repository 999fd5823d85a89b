package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/service"
)

func articleJSON(article *db.Article) gin.H {
	return gin.H{
		"id":          article.ID,
		"topic":       article.Topic,
		"headline":    article.Headline,
		"author":      article.Author,
		"editor":      article.Editor,
		"status":      article.Status,
		"active":      article.Active,
		"version":     article.Version,
		"publishedAt": article.PublishedAt,
		"createdAt":   article.CreatedAt,
		"updatedAt":   article.UpdatedAt,
	}
}

// CreateArticle creates a draft in the caller's topic.
func (a *API) CreateArticle(c *gin.Context) {
	var payload struct {
		Topic    string `json:"topic"`
		Headline string `json:"headline"`
		Author   string `json:"author"`
		Body     string `json:"body"`
	}
	if !bindJSON(c, &payload, "invalid article payload") {
		return
	}

	article, err := a.articles.Create(c.Request.Context(), service.ArticleInput{
		Topic:    payload.Topic,
		Headline: payload.Headline,
		Author:   payload.Author,
		Body:     payload.Body,
	}, currentPrincipal(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"article": articleJSON(article)})
}

// GetArticle returns one article with its body.
func (a *API) GetArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	article, body, err := a.articles.Get(c.Request.Context(), id, currentPrincipal(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	payload := articleJSON(article)
	payload["body"] = body
	c.JSON(http.StatusOK, gin.H{"article": payload})
}

// ListArticles returns one page of articles with counters.
func (a *API) ListArticles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "10"))

	result, err := a.articles.List(c.Request.Context(), service.ArticleFilter{
		Topic:   c.Query("topic"),
		Status:  c.Query("status"),
		Page:    page,
		PerPage: perPage,
	}, currentPrincipal(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(result.Articles))
	for i := range result.Articles {
		items = append(items, articleJSON(&result.Articles[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles":       items,
		"total":          result.Total,
		"publishedCount": result.PublishedCount,
		"draftCount":     result.DraftCount,
		"totalPages":     result.TotalPages,
		"page":           result.Page,
		"perPage":        result.PerPage,
	})
}

// UpdateArticle edits headline, editor or body while the article is
// editable. The caller passes the version it read; a stale one gets 409.
func (a *API) UpdateArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload struct {
		Headline        *string `json:"headline"`
		Editor          *string `json:"editor"`
		Body            *string `json:"body"`
		ExpectedVersion int     `json:"expectedVersion"`
	}
	if !bindJSON(c, &payload, "invalid article payload") {
		return
	}

	article, err := a.articles.Update(c.Request.Context(), id, service.ArticleUpdate{
		Headline:        payload.Headline,
		Editor:          payload.Editor,
		Body:            payload.Body,
		ExpectedVersion: payload.ExpectedVersion,
	}, currentPrincipal(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"article": articleJSON(article)})
}

// SubmitArticle moves a draft to the editor desk.
func (a *API) SubmitArticle(c *gin.Context) {
	a.transition(c, func(c *gin.Context, id uint) (*db.Article, error) {
		return a.lifecycle.SubmitForReview(c.Request.Context(), id, currentPrincipal(c))
	})
}

// RequestChanges sends the article back to draft with notes.
func (a *API) RequestChanges(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	if !bindJSON(c, &payload, "invalid notes payload") {
		return
	}

	article, err := a.lifecycle.RequestChanges(c.Request.Context(), id, currentPrincipal(c), payload.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": article.Status})
}

// PublishArticle publishes directly from the editor desk.
func (a *API) PublishArticle(c *gin.Context) {
	a.transition(c, func(c *gin.Context, id uint) (*db.Article, error) {
		return a.lifecycle.PublishDirect(c.Request.Context(), id, currentPrincipal(c))
	})
}

// RecallArticle unpublishes and destroys the resource bundle.
func (a *API) RecallArticle(c *gin.Context) {
	a.transition(c, func(c *gin.Context, id uint) (*db.Article, error) {
		return a.lifecycle.Recall(c.Request.Context(), id, currentPrincipal(c))
	})
}

// DeleteArticle soft-hides the article (deactivate).
func (a *API) DeleteArticle(c *gin.Context) {
	a.transition(c, func(c *gin.Context, id uint) (*db.Article, error) {
		return a.lifecycle.Deactivate(c.Request.Context(), id, currentPrincipal(c))
	})
}

// RestoreArticle clears the soft-hide flag.
func (a *API) RestoreArticle(c *gin.Context) {
	a.transition(c, func(c *gin.Context, id uint) (*db.Article, error) {
		return a.lifecycle.Reactivate(c.Request.Context(), id, currentPrincipal(c))
	})
}

// PurgeArticle hard-deletes the article and everything attached to it.
// Global admin only.
func (a *API) PurgeArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.lifecycle.Purge(c.Request.Context(), id, currentPrincipal(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetBundle returns the live publication bundle metadata.
func (a *API) GetBundle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, _, err := a.articles.Get(c.Request.Context(), id, currentPrincipal(c)); err != nil {
		writeServiceError(c, err)
		return
	}

	bundle, err := a.bundles.Bundle(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	children := make([]gin.H, 0, len(bundle.Children))
	for _, child := range bundle.Children {
		children = append(children, gin.H{
			"kind":        child.Kind,
			"contentType": child.ContentType,
			"bytes":       child.Bytes,
			"storageKey":  child.StorageKey,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"parent": gin.H{
			"storageKey": bundle.Parent.StorageKey,
			"version":    bundle.Parent.Version,
			"createdAt":  bundle.Parent.CreatedAt,
		},
		"children": children,
	})
}

// GetArtifact streams one artifact child (html or pdf).
func (a *API) GetArtifact(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	kind := c.Param("kind")
	if kind != db.ResourceKindHTML && kind != db.ResourceKindPDF {
		respondError(c, http.StatusBadRequest, "unknown artifact kind")
		return
	}

	if _, _, err := a.articles.Get(c.Request.Context(), id, currentPrincipal(c)); err != nil {
		writeServiceError(c, err)
		return
	}

	resource, data, err := a.bundles.Artifact(c.Request.Context(), id, kind)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, resource.ContentType, data)
}

func (a *API) transition(c *gin.Context, apply func(c *gin.Context, id uint) (*db.Article, error)) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	article, err := apply(c, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": article.Status})
}
