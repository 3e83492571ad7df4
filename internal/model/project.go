package model

import "time"

type Project struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerOrgID string    `json:"owner_org_id"`
}

// ProjectAccessGrant gives a user membership in a project.
type ProjectAccessGrant struct {
	CreatedAt time.Time `json:"created_at"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	GrantedBy *string   `json:"granted_by,omitempty"`
}

type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleMember OrgRole = "member"
)

type OrgMember struct {
	OrgID  string  `json:"org_id"`
	UserID string  `json:"user_id"`
	Role   OrgRole `json:"role"`
}

type Profile struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Email    *string `json:"email,omitempty"`
}
