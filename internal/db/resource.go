package db

import "gorm.io/gorm"

// Publication resource kinds and stages.
const (
	ResourceKindBundle = "bundle"
	ResourceKindHTML   = "html"
	ResourceKindPDF    = "pdf"

	ResourceStageStaged = "staged"
	ResourceStageLive   = "live"
)

// PublicationResource is one row of the publication bundle: the parent
// (kind=bundle) plus exactly two children (html, pdf) pointing at it via
// ParentID. New sets are written staged and swapped to live in one
// transaction, so readers only ever see a complete set.
type PublicationResource struct {
	gorm.Model
	ArticleID   uint   `gorm:"index;not null"`
	ParentID    *uint  `gorm:"index"`
	Kind        string `gorm:"size:16;not null"`
	Stage       string `gorm:"size:16;index;not null"`
	ContentType string `gorm:"size:64"`
	StorageKey  string `gorm:"size:64;index"`
	Bytes       int64
	Version     int
}

// TableName 指定自定义表名。
func (PublicationResource) TableName() string {
	return "publication_resources"
}

// ResourceBlob holds the rendered artifact bytes, addressed by the storage
// key of its PublicationResource row.
type ResourceBlob struct {
	gorm.Model
	StorageKey string `gorm:"size:64;uniqueIndex;not null"`
	Data       []byte `gorm:"type:blob"`
}

// TableName 指定自定义表名。
func (ResourceBlob) TableName() string {
	return "resource_blobs"
}
