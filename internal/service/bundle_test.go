package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/newsdesk/internal/db"
)

func TestBundle_CreateShape(t *testing.T) {
	env := newTestEnv(t)
	article := env.seedArticle(t, "macro", db.StatusPublished)

	if err := env.bundles.Create(context.Background(), article, "# Outlook\n\nGrowth holds up."); err != nil {
		t.Fatalf("create bundle: %v", err)
	}

	bundle, err := env.bundles.Bundle(context.Background(), article.ID)
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	if bundle.Parent.Kind != db.ResourceKindBundle {
		t.Fatalf("parent kind %q", bundle.Parent.Kind)
	}
	if len(bundle.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(bundle.Children))
	}

	kinds := map[string]bool{}
	for _, child := range bundle.Children {
		kinds[child.Kind] = true
		if child.ParentID == nil || *child.ParentID != bundle.Parent.ID {
			t.Fatalf("child %q not linked to parent", child.Kind)
		}
		if child.Bytes <= 0 {
			t.Fatalf("child %q has no payload size", child.Kind)
		}
	}
	if !kinds[db.ResourceKindHTML] || !kinds[db.ResourceKindPDF] {
		t.Fatalf("expected html and pdf children, got %v", kinds)
	}

	if err := env.bundles.VerifyBundle(context.Background(), article.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestBundle_CreateReplacesWholesale(t *testing.T) {
	env := newTestEnv(t)
	article := env.seedArticle(t, "macro", db.StatusPublished)

	if err := env.bundles.Create(context.Background(), article, "first edition"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	first, err := env.bundles.Bundle(context.Background(), article.ID)
	if err != nil {
		t.Fatalf("load first: %v", err)
	}

	if err := env.bundles.Create(context.Background(), article, "second edition"); err != nil {
		t.Fatalf("second create: %v", err)
	}
	second, err := env.bundles.Bundle(context.Background(), article.ID)
	if err != nil {
		t.Fatalf("load second: %v", err)
	}

	if first.Parent.StorageKey == second.Parent.StorageKey {
		t.Fatal("replace must mint fresh storage keys")
	}
	if err := env.bundles.VerifyBundle(context.Background(), article.ID); err != nil {
		t.Fatalf("verify after replace: %v", err)
	}

	// The old blobs must be gone, not orphaned.
	var blobs int64
	if err := env.gdb.Model(&db.ResourceBlob{}).Count(&blobs).Error; err != nil {
		t.Fatalf("count blobs: %v", err)
	}
	if blobs != 2 {
		t.Fatalf("expected 2 live blobs, got %d", blobs)
	}

	_, html, err := env.bundles.Artifact(context.Background(), article.ID, db.ResourceKindHTML)
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if !bytes.Contains(html, []byte("second edition")) {
		t.Fatal("live artifact must carry the latest render")
	}
}

func TestBundle_DestroyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	article := env.seedArticle(t, "macro", db.StatusPublished)

	// Destroy with nothing live is a no-op, not an error.
	if err := env.bundles.Destroy(context.Background(), article.ID); err != nil {
		t.Fatalf("destroy on empty: %v", err)
	}

	if err := env.bundles.Create(context.Background(), article, "body"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.bundles.Destroy(context.Background(), article.ID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := env.bundles.Destroy(context.Background(), article.ID); err != nil {
		t.Fatalf("second destroy: %v", err)
	}

	if _, err := env.bundles.Bundle(context.Background(), article.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after destroy, got %v", err)
	}

	var rows, blobs int64
	env.gdb.Unscoped().Model(&db.PublicationResource{}).Where("article_id = ?", article.ID).Count(&rows)
	env.gdb.Model(&db.ResourceBlob{}).Count(&blobs)
	if rows != 0 || blobs != 0 {
		t.Fatalf("destroy must hard-delete rows and blobs, got %d/%d", rows, blobs)
	}
}

func TestBundle_ArtifactRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	article := env.seedArticle(t, "macro", db.StatusPublished)

	if err := env.bundles.Create(context.Background(), article, "# Outlook\n\nGrowth holds up."); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, data, err := env.bundles.Artifact(context.Background(), article.ID, db.ResourceKindHTML)
	if err != nil {
		t.Fatalf("html artifact: %v", err)
	}
	if res.ContentType != "text/html; charset=utf-8" {
		t.Fatalf("html content type %q", res.ContentType)
	}
	if !strings.Contains(string(data), "Quarterly Macro Outlook") {
		t.Fatal("html must carry the headline")
	}

	res, data, err = env.bundles.Artifact(context.Background(), article.ID, db.ResourceKindPDF)
	if err != nil {
		t.Fatalf("pdf artifact: %v", err)
	}
	if res.ContentType != "application/pdf" {
		t.Fatalf("pdf content type %q", res.ContentType)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Fatal("pdf must start with the version header")
	}

	if _, _, err := env.bundles.Artifact(context.Background(), article.ID, db.ResourceKindBundle); !errors.Is(err, ErrNotFound) {
		t.Fatalf("parent has no blob, expected ErrNotFound, got %v", err)
	}
}

func TestBundle_RenderRetryThenFail(t *testing.T) {
	env := newTestEnvWithRenderer(t, &failingRenderer{inner: NewMarkdownRenderer()})
	article := env.seedArticle(t, "macro", db.StatusPublished)

	err := env.bundles.Create(context.Background(), article, "body")
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected BuildError, got %v", err)
	}
	if !strings.Contains(buildErr.Error(), db.ResourceKindPDF) {
		t.Fatalf("failure must name the artifact kind, got %v", buildErr)
	}

	// Nothing staged may leak.
	var rows int64
	env.gdb.Unscoped().Model(&db.PublicationResource{}).Where("article_id = ?", article.ID).Count(&rows)
	if rows != 0 {
		t.Fatalf("expected no resource rows after failed build, got %d", rows)
	}
}
