package model

type ResourceType string

const (
	ResourceTypeProjectDocsRoot  ResourceType = "PROJECT_DOCS_ROOT"
	ResourceTypeBorrowerDocsRoot ResourceType = "BORROWER_DOCS_ROOT"
	ResourceTypeFolder           ResourceType = "FOLDER"
	ResourceTypeFile             ResourceType = "FILE"
)

// IsDocsRoot reports whether the resource type is an inheritable
// permission root.
func (t ResourceType) IsDocsRoot() bool {
	return t == ResourceTypeProjectDocsRoot || t == ResourceTypeBorrowerDocsRoot
}

// Resource is a node in a project's document tree. FILE rows are leaves;
// docs-root rows anchor permission inheritance.
type Resource struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ResourceType ResourceType `json:"resource_type"`
	ProjectID    *string      `json:"project_id,omitempty"`
	OrgID        *string      `json:"org_id,omitempty"`
	ParentID     *string      `json:"parent_id,omitempty"`
}

type PermissionLevel string

const (
	PermissionNone PermissionLevel = "none"
	PermissionView PermissionLevel = "view"
	PermissionEdit PermissionLevel = "edit"
)

// AtLeastView reports whether the level grants read access.
func (p PermissionLevel) AtLeastView() bool {
	return p == PermissionView || p == PermissionEdit
}

// Permission is an explicit (resource, user) grant. Absence of a row means
// the level is inherited; an explicit none blocks inheritance.
type Permission struct {
	ResourceID string          `json:"resource_id"`
	UserID     string          `json:"user_id"`
	Level      PermissionLevel `json:"level"`
}
