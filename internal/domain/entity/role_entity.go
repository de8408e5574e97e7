package entity

import (
	"time"
)

// Audience kinds a role may be scoped to.
const (
	AudienceOrganization = "ORGANIZATION"
	AudienceApplication  = "APPLICATION"
)

// DomainSeparator splits a user-store domain from a member name in
// domain-qualified names such as "PRIMARY/alice". Role names may not
// contain it.
const DomainSeparator = "/"

// PrimaryDomain is the default user-store domain assumed for
// unqualified member names.
const PrimaryDomain = "PRIMARY"

// RoleAudience identifies the scope a role applies to. Name is the
// display name of the audience (organization or application name),
// resolved on read and never persisted.
type RoleAudience struct {
	Kind string
	ID   string
	Name string
}

// Role represents a full role record as returned by single-role reads,
// mapping to the "roles" table plus its association tables.
type Role struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	TenantDomain string    `db:"tenant_domain"`
	Audience     RoleAudience
	Users        []UserBasicInfo
	Groups       []GroupBasicInfo
	IdpGroups    []IdpGroup
	Permissions  []Permission
	// AssociatedApplications is populated for ORGANIZATION-audience roles only.
	AssociatedApplications []AssociatedApplication
	// ImplicitAllUsers marks the everyone role: every user of the tenant
	// holds it regardless of the stored membership in Users.
	ImplicitAllUsers bool
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// RoleBasicInfo is the projection used by list queries and returned
// after mutations.
type RoleBasicInfo struct {
	ID       string
	Name     string
	Audience RoleAudience
}

// Permission is a named capability (scope) granted to a role.
type Permission struct {
	Name        string
	DisplayName string
}

// IdpGroup is a group owned by an external identity provider. GroupName
// is resolved from the provider's group configuration at read time.
type IdpGroup struct {
	IdpID     string
	GroupID   string
	GroupName string
}

// UserBasicInfo pairs a stable principal ID with its domain-qualified
// display name.
type UserBasicInfo struct {
	ID   string
	Name string
}

// GroupBasicInfo pairs a stable group ID with its domain-qualified
// display name.
type GroupBasicInfo struct {
	ID   string
	Name string
}

// AssociatedApplication is an application linked to an
// ORGANIZATION-audience role.
type AssociatedApplication struct {
	ID   string
	Name string
}
