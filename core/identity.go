package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// NodeKind categorizes a registered node.
type NodeKind int

const (
	// KindFunction marks a plain callable with no agency of its own.
	KindFunction NodeKind = iota
	// KindAgent marks an autonomous unit that may issue calls to other nodes.
	KindAgent
	// KindTool marks a structured capability invoked by agents.
	KindTool
)

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindAgent:
		return "agent"
	case KindTool:
		return "tool"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so snapshots stay readable.
func (k NodeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "function":
		*k = KindFunction
	case "agent":
		*k = KindAgent
	case "tool":
		*k = KindTool
	default:
		return fmt.Errorf("unknown node kind %q", string(b))
	}
	return nil
}

// NodeIdentity is the stable, immutable identity of a registered node.
// ToolName is the machine identifier used for resolution; DisplayName is the
// human-readable label, derived once at registration unless overridden.
type NodeIdentity struct {
	Kind        NodeKind `json:"kind"`
	DisplayName string   `json:"display_name"`
	ToolName    string   `json:"tool_name"`
}

var toolNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidToolName reports whether name is a bare identifier: letters, digits and
// underscores with no leading digit.
func ValidToolName(name string) bool {
	return toolNameRE.MatchString(name)
}

// DeriveDisplayName computes the default display name for a tool name:
// underscore-delimited tokens, each capitalized, joined by spaces.
// "fetch_user_data" becomes "Fetch User Data". The derivation is pure and
// deterministic; callers compute it once at registration time.
func DeriveDisplayName(toolName string) string {
	tokens := strings.Split(toolName, "_")
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		out = append(out, strings.ToUpper(tok[:1])+strings.ToLower(tok[1:]))
	}
	return strings.Join(out, " ")
}

// NewID generates a new unique identifier for sessions and flow runs.
func NewID() string { return uuid.NewString() }
