package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// Authorization outcomes. Mapped to 401/403 at the transport boundary.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient scope")
)

type accessKind int

const (
	accessPublic accessKind = iota
	accessAuthenticated
	accessScope
)

// Rule binds a method and path pattern to an access requirement. Patterns
// are slash-separated; "*" matches exactly one segment and a trailing "**"
// matches any remainder, including none.
type Rule struct {
	Method  string // "*" matches every method
	Pattern string
	access  accessKind
	scope   string
}

// PublicRule allows the route for everyone, authenticated or not.
func PublicRule(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessPublic}
}

// AuthenticatedRule allows any authenticated identity, regardless of scope.
func AuthenticatedRule(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessAuthenticated}
}

// ScopeRule allows only identities granted the given scope.
func ScopeRule(method, pattern, scope string) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessScope, scope: scope}
}

// Policy is a static ordered rule table; the first matching rule wins and
// unmatched requests require authentication. Keeping the table explicit
// makes authorization decisions testable without the request pipeline.
type Policy struct {
	rules []Rule
}

// NewPolicy builds the table. Rule order is significant.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// Authorize decides whether an identity (nil = anonymous) may reach the
// route. Returns nil on allow, ErrUnauthenticated or ErrForbidden otherwise.
func (p *Policy) Authorize(method, path string, identity *Identity) error {
	for _, rule := range p.rules {
		if !rule.matches(method, path) {
			continue
		}
		return rule.check(identity)
	}
	// No rule matched: any request outside the table needs authentication.
	if identity == nil {
		return ErrUnauthenticated
	}
	return nil
}

// Enforce returns the fiber middleware applying the policy after
// authentication has run.
func (p *Policy) Enforce() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := IdentityFromContext(c)
		switch err := p.Authorize(c.Method(), c.Path(), identity); {
		case errors.Is(err, ErrUnauthenticated):
			return apperrors.NewUnauthorized("authentication required")
		case errors.Is(err, ErrForbidden):
			return apperrors.NewForbidden("insufficient scope")
		case err != nil:
			return apperrors.MapError(err)
		}
		return c.Next()
	}
}

func (r Rule) check(identity *Identity) error {
	switch r.access {
	case accessPublic:
		return nil
	case accessAuthenticated:
		if identity == nil {
			return ErrUnauthenticated
		}
		return nil
	default:
		if identity == nil {
			return ErrUnauthenticated
		}
		if !identity.HasScope(r.scope) {
			return ErrForbidden
		}
		return nil
	}
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "*" && !strings.EqualFold(r.Method, method) {
		return false
	}
	return matchPattern(r.Pattern, path)
}

func matchPattern(pattern, path string) bool {
	patSegs := splitPath(pattern)
	pathSegs := splitPath(path)

	for i, seg := range patSegs {
		if seg == "**" {
			return true
		}
		if i >= len(pathSegs) {
			return false
		}
		if seg != "*" && seg != pathSegs[i] {
			return false
		}
	}
	return len(patSegs) == len(pathSegs)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
