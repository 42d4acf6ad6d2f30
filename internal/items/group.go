package items

import "fmt"

// Walk visits the group and all of its subgroups depth-first, parents first.
// depth is 0 for the receiver.
func (g *Group) Walk(fn func(group *Group, depth int)) {
	g.walk(fn, 0)
}

func (g *Group) walk(fn func(*Group, int), depth int) {
	fn(g, depth)
	for _, sub := range g.Subgroups {
		sub.walk(fn, depth+1)
	}
}

// Count returns the number of groups in the tree rooted at g
func (g *Group) Count() int {
	n := 0
	g.Walk(func(*Group, int) { n++ })
	return n
}

// Validate reports an error when a group is reachable twice from g
func (g *Group) Validate() error {
	return g.validate(make(map[*Group]bool))
}

func (g *Group) validate(seen map[*Group]bool) error {
	if seen[g] {
		return fmt.Errorf("group %q is reachable more than once", g.ID)
	}
	seen[g] = true
	for _, sub := range g.Subgroups {
		if err := sub.validate(seen); err != nil {
			return err
		}
	}
	return nil
}
