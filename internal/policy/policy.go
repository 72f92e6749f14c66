// Package policy implements the access rules for guides.
//
// Every surface that answers "may this user do that to this guide" calls
// Authorize, so the HTTP layer, listing, search, and export all agree on
// one set of rules. The package is pure: no I/O, no clock, no store.
package policy

import (
	"github.com/guidepostapp/guidepost-server/internal/domain"
)

// Action is an operation a user can attempt on a guide.
type Action string

const (
	// ActionRead covers fetching a guide by ID or shortcut and seeing it in
	// listings and search results.
	ActionRead Action = "read"
	// ActionUpdateContent covers changes to name, shortcut, description,
	// and steps.
	ActionUpdateContent Action = "update_content"
	// ActionUpdateSharing covers changes to is_public and shared_emails and
	// issuing share tokens.
	ActionUpdateSharing Action = "update_sharing"
	// ActionExport covers rendering the guide as a document.
	ActionExport Action = "export"
	// ActionDelete covers removing the guide.
	ActionDelete Action = "delete"
)

// Reason tags explain a decision. They are stable strings for logs and
// error details, not user-facing copy.
const (
	ReasonOwner       = "owner"
	ReasonPublicRead  = "public_read"
	ReasonSharedRead  = "shared_read"
	ReasonSharedWrite = "shared_write"
	ReasonNotOwner    = "not_owner"
	ReasonNotShared   = "not_shared"
	ReasonDenied      = "denied"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Authorize decides whether user may perform action on guide.
// Rules are evaluated top-down; the first match wins:
//
//  1. The owner may do anything.
//  2. read is allowed if the guide is public or shared with the user's email.
//  3. update_content is allowed if the guide is shared with the user's email.
//     Public visibility alone never grants writes.
//  4. update_sharing, export, and delete are owner-only.
//  5. Everything else is denied.
func Authorize(user *domain.User, guide *domain.Guide, action Action) Decision {
	if user == nil || guide == nil {
		return deny(ReasonDenied)
	}

	if guide.IsOwnedBy(user.ID) {
		return allow(ReasonOwner)
	}

	switch action {
	case ActionRead:
		if guide.IsPublic {
			return allow(ReasonPublicRead)
		}
		if guide.IsSharedWith(user.Email) {
			return allow(ReasonSharedRead)
		}
		return deny(ReasonNotShared)

	case ActionUpdateContent:
		if guide.IsSharedWith(user.Email) {
			return allow(ReasonSharedWrite)
		}
		return deny(ReasonNotShared)

	case ActionUpdateSharing, ActionExport, ActionDelete:
		return deny(ReasonNotOwner)

	default:
		return deny(ReasonDenied)
	}
}

// CanRead reports whether the user may read the guide.
// Listing and search filters use this shorthand.
func CanRead(user *domain.User, guide *domain.Guide) bool {
	return Authorize(user, guide, ActionRead).Allowed
}
