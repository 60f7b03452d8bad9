// Package identity derives destination naming from source identifiers and
// the project code. Everything here is pure; the pipeline controller computes
// each value once and passes it down so no step can drift.
package identity

import (
	"strings"
)

// OverrideNone is the sentinel a caller passes when no user-defined
// destination name was supplied.
const OverrideNone = "None"

// tenantPrefix is stripped from the organization name when it prefixes the
// destination repository name.
const tenantPrefix = "pru-"

// Role is one of the fixed access roles every migrated repository is wired
// with.
type Role string

const (
	RoleViewer      Role = "Viewers"
	RoleContributor Role = "Contributors"
	RoleManager     Role = "Managers"
)

// Roles lists every role in grant order.
func Roles() []Role {
	return []Role{RoleViewer, RoleContributor, RoleManager}
}

// Permission maps the role to the destination permission level.
func (r Role) Permission() string {
	switch r {
	case RoleViewer:
		return "pull"
	case RoleContributor:
		return "push"
	case RoleManager:
		return "admin"
	default:
		return "pull"
	}
}

// TeamSlug returns the destination team slug for the role,
// e.g. Project-UX2-Managers.
func (r Role) TeamSlug(projectCode string) string {
	return "Project-" + strings.ToUpper(projectCode) + "-" + string(r)
}

// ADGroup returns the source-side access-group name for the role,
// e.g. GITHUB-UX2-Managers.
func (r Role) ADGroup(projectCode string) string {
	return "GITHUB-" + strings.ToUpper(projectCode) + "-" + string(r)
}

// Normalize converts a source repository name to its slug form: spaces
// become hyphens and the result is lowercased.
func Normalize(repoName string) string {
	return strings.ToLower(strings.ReplaceAll(repoName, " ", "-"))
}

// DeriveDestinationName builds the destination repository name
// {org minus tenant prefix}-{projectCode}-{slug}, lowercased. A user
// override that is not the OverrideNone sentinel replaces the slug.
func DeriveDestinationName(org, slug, projectCode, override string) string {
	prefix := strings.ReplaceAll(org+"-"+projectCode+"-", tenantPrefix, "")

	name := slug
	if override != "" && !strings.EqualFold(override, OverrideNone) {
		name = strings.ReplaceAll(override, " ", "-")
	}

	return strings.ToLower(prefix + name)
}
