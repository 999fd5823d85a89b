// Package permission resolves topic-scoped role grants for authenticated
// principals. Scope strings of the form "topic:role" are parsed exactly once,
// at the boundary; every downstream check works on structured grants.
package permission

import "strings"

// RoleLevel orders the four roles. A higher role always satisfies a lower
// requirement on the same topic.
type RoleLevel int

const (
	RoleNone    RoleLevel = 0
	RoleReader  RoleLevel = 1
	RoleEditor  RoleLevel = 2
	RoleAnalyst RoleLevel = 3
	RoleAdmin   RoleLevel = 4
)

// GlobalTopic is the wildcard topic: a global grant at level L satisfies any
// topic at level <= L.
const GlobalTopic = "global"

var roleNames = map[string]RoleLevel{
	"reader":  RoleReader,
	"editor":  RoleEditor,
	"analyst": RoleAnalyst,
	"admin":   RoleAdmin,
}

// String returns the lowercase role name.
func (r RoleLevel) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleEditor:
		return "editor"
	case RoleAnalyst:
		return "analyst"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// ParseRole maps a role name to its level; unknown names yield RoleNone.
func ParseRole(name string) RoleLevel {
	return roleNames[strings.ToLower(strings.TrimSpace(name))]
}

// Grant is one parsed topic-scoped role.
type Grant struct {
	Topic string
	Role  RoleLevel
}

// ParseScopes converts raw "topic:role" strings into grants. Malformed
// entries (missing separator, empty topic, unknown role) are skipped, never
// fatal.
func ParseScopes(scopes []string) []Grant {
	grants := make([]Grant, 0, len(scopes))
	for _, raw := range scopes {
		topic, roleName, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if !ok {
			continue
		}
		topic = strings.ToLower(strings.TrimSpace(topic))
		role := ParseRole(roleName)
		if topic == "" || role == RoleNone {
			continue
		}
		grants = append(grants, Grant{Topic: topic, Role: role})
	}
	return grants
}

// ParseScopeString splits a comma-joined scope list and parses it.
func ParseScopeString(joined string) []Grant {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	return ParseScopes(strings.Split(joined, ","))
}

// Principal is an authenticated actor with parsed grants.
type Principal struct {
	Name   string
	Grants []Grant
}

// IsGlobalAdmin reports whether the principal carries the global admin grant.
func (p Principal) IsGlobalAdmin() bool {
	return ResolveRole(p.Grants, GlobalTopic) >= RoleAdmin
}

// Engine answers topic-scoped and any-topic permission questions over parsed
// grants. It is stateless; one shared instance is injected into the services.
type Engine struct{}

// NewEngine returns a permission engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ResolveRole returns the highest role the grants hold on topic, considering
// global grants.
func ResolveRole(grants []Grant, topic string) RoleLevel {
	topic = strings.ToLower(strings.TrimSpace(topic))
	best := RoleNone
	for _, g := range grants {
		if g.Topic != topic && g.Topic != GlobalTopic {
			continue
		}
		if g.Role > best {
			best = g.Role
		}
	}
	return best
}

// ResolveRole 同 package-level ResolveRole。
func (e *Engine) ResolveRole(grants []Grant, topic string) RoleLevel {
	return ResolveRole(grants, topic)
}

// Check reports whether the grants satisfy required on the given topic.
func (e *Engine) Check(grants []Grant, required RoleLevel, topic string) bool {
	return ResolveRole(grants, topic) >= required
}

// CheckAny reports whether the grants satisfy required on at least one topic.
// Used for coarse navigation-style gates; must not be conflated with Check.
func (e *Engine) CheckAny(grants []Grant, required RoleLevel) bool {
	for _, g := range grants {
		if g.Role >= required {
			return true
		}
	}
	return false
}
