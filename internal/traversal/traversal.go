// Package traversal resolves a declared component tree into unique paths.
//
// Every node gets three paths once bound:
//
//   - LongPath: all member names from the root joined by "/"
//   - Path: the shortest suffix of the non-namespace names that no earlier
//     node claimed, falling back to the long path
//   - DunderPath: the long path joined by "__"
//
// The root has the empty path.
package traversal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Separator joins path segments.
const Separator = "/"

var (
	// ErrReservedName is returned when a member uses a name the binder needs for itself.
	ErrReservedName = errors.New("reserved name")
	// ErrDuplicatePath is returned when two nodes resolve to the same path.
	ErrDuplicatePath = errors.New("duplicate path")
	// ErrDuplicateMember is returned when a node declares the same member name twice.
	ErrDuplicateMember = errors.New("duplicate member name")
	// ErrEmptyName is returned for members without a name.
	ErrEmptyName = errors.New("member name must not be empty")
)

// ReservedNames may not be used as member names anywhere in a tree.
var ReservedNames = []string{
	"bind",
	"get_request",
	"iommi_dunderpath",
	"iommi_path",
	"iommi_style",
	"on_bind",
	"own_evaluate_parameters",
}

// Node is a declared component.
type Node interface {
	// DeclaredMembers returns the named children in declaration order.
	DeclaredMembers() []Member
}

// Member is a named child of a node.
type Member struct {
	Name string
	Node Node
}

// Namespace is a structural container such as "fields" or "columns". It
// appears in long paths but never in short paths, and has no path entry of
// its own.
type Namespace []Member

// DeclaredMembers implements Node.
func (n Namespace) DeclaredMembers() []Member { return n }

// Leaf is a node without members.
type Leaf struct{}

// DeclaredMembers implements Node.
func (Leaf) DeclaredMembers() []Member { return nil }

// ValidateReservedNames rejects trees that use any of ReservedNames. The
// offending names are listed once each, sorted.
func ValidateReservedNames(root Node) error {
	reserved := make(map[string]bool, len(ReservedNames))
	for _, name := range ReservedNames {
		reserved[name] = true
	}

	found := map[string]bool{}
	walk(root, func(m Member) {
		if reserved[m.Name] {
			found[m.Name] = true
		}
	})
	if len(found) == 0 {
		return nil
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("%w: The names %s are reserved, please pick other names", ErrReservedName, strings.Join(names, ", "))
}

func walk(n Node, visit func(Member)) {
	if n == nil {
		return
	}
	for _, m := range n.DeclaredMembers() {
		visit(m)
		walk(m.Node, visit)
	}
}

// BuildLongPathByPath maps every short path in the tree to its long path.
func BuildLongPathByPath(root Node) (map[string]string, error) {
	result := map[string]string{}
	err := traverse(root, nil, nil, func(string, string, []string, Node) {}, result)
	return result, err
}

type visitor func(short, long string, longSegments []string, n Node)

func traverse(n Node, longSegments, shortSegments []string, visit visitor, seen map[string]string) error {
	long := strings.Join(longSegments, Separator)
	short, ok := uniqueSuffix(shortSegments, seen)
	if !ok {
		if _, taken := seen[long]; taken {
			return fmt.Errorf("%w: %q", ErrDuplicatePath, long)
		}
		short = long
	}
	seen[short] = long
	visit(short, long, longSegments, n)

	return traverseMembers(n, longSegments, shortSegments, visit, seen)
}

func traverseMembers(n Node, longSegments, shortSegments []string, visit visitor, seen map[string]string) error {
	if n == nil {
		return nil
	}
	names := map[string]bool{}
	for _, m := range n.DeclaredMembers() {
		if m.Name == "" {
			return ErrEmptyName
		}
		if names[m.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateMember, m.Name)
		}
		names[m.Name] = true

		childLong := append(append([]string{}, longSegments...), m.Name)
		if ns, ok := m.Node.(Namespace); ok {
			if err := traverseMembers(ns, childLong, shortSegments, visit, seen); err != nil {
				return err
			}
			continue
		}
		childShort := append(append([]string{}, shortSegments...), m.Name)
		if err := traverse(m.Node, childLong, childShort, visit, seen); err != nil {
			return err
		}
	}
	return nil
}

// uniqueSuffix returns the shortest suffix of parts not yet in seen. The
// empty suffix is only available to the root.
func uniqueSuffix(parts []string, seen map[string]string) (string, bool) {
	for i := len(parts); i >= 0; i-- {
		candidate := strings.Join(parts[i:], Separator)
		if _, taken := seen[candidate]; !taken {
			return candidate, true
		}
	}
	return "", false
}
