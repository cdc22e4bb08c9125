package traversal

import "strings"

// Bound is a node of a bound tree.
type Bound struct {
	Name       string
	Path       string
	LongPath   string
	DunderPath string
	Node       Node
	Parent     *Bound
	Children   []*Bound

	byPath map[string]*Bound
}

// Bind validates the tree and resolves the paths of every node. Namespaces
// are transparent: their members become children of the enclosing node.
func Bind(root Node) (*Bound, error) {
	if err := ValidateReservedNames(root); err != nil {
		return nil, err
	}

	byPath := map[string]*Bound{}
	byLong := map[string]*Bound{}
	seen := map[string]string{}

	var rootBound *Bound
	err := traverse(root, nil, nil, func(short, long string, longSegments []string, n Node) {
		b := &Bound{
			Path:       short,
			LongPath:   long,
			DunderPath: strings.Join(longSegments, "__"),
			Node:       n,
			byPath:     byPath,
		}
		if len(longSegments) > 0 {
			b.Name = longSegments[len(longSegments)-1]
			b.Parent = nearestParent(byLong, longSegments[:len(longSegments)-1])
			b.Parent.Children = append(b.Parent.Children, b)
		} else {
			rootBound = b
		}
		byPath[short] = b
		byLong[long] = b
	}, seen)
	if err != nil {
		return nil, err
	}
	return rootBound, nil
}

// nearestParent walks up past namespace segments to the closest bound ancestor.
func nearestParent(byLong map[string]*Bound, segments []string) *Bound {
	for i := len(segments); i >= 0; i-- {
		if b, ok := byLong[strings.Join(segments[:i], Separator)]; ok {
			return b
		}
	}
	return nil
}

// Lookup returns the node bound to the given short path.
func (b *Bound) Lookup(path string) (*Bound, bool) {
	n, ok := b.byPath[path]
	return n, ok
}

// Walk visits b and all of its descendants depth first in declaration order.
func (b *Bound) Walk(visit func(*Bound)) {
	visit(b)
	for _, c := range b.Children {
		c.Walk(visit)
	}
}

// Paths returns the short path to long path table of the whole tree.
func (b *Bound) Paths() map[string]string {
	out := make(map[string]string, len(b.byPath))
	for short, n := range b.byPath {
		out[short] = n.LongPath
	}
	return out
}
