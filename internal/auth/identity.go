package auth

import "sort"

// Identity is the request-scoped result of successful token validation.
// It is derived solely from the token and never re-read from the store,
// so a role revoked after issuance remains granted until token expiry.
type Identity struct {
	SubjectID string
	Scopes    map[string]struct{}
}

// HasScope reports whether the identity was granted the named scope.
func (id *Identity) HasScope(scope string) bool {
	if id == nil {
		return false
	}
	_, ok := id.Scopes[scope]
	return ok
}

// ScopeNames returns the granted scopes sorted lexicographically.
func (id *Identity) ScopeNames() []string {
	if id == nil {
		return nil
	}
	names := make([]string, 0, len(id.Scopes))
	for scope := range id.Scopes {
		names = append(names, scope)
	}
	sort.Strings(names)
	return names
}
