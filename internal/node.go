package internal

// Node is one computation in the subscription graph.
// deps are the upstream computations the node reads from (non-owning).
type Node struct {
	Name string

	deps []*Node

	// number of live owners retaining the node, guarded by Graph.mu
	refs int

	activate   func()
	deactivate func()
}

func NewNode(name string, activate, deactivate func(), deps ...*Node) *Node {
	return &Node{
		Name:       name,
		deps:       deps,
		activate:   activate,
		deactivate: deactivate,
	}
}

func (n *Node) Deps() []*Node {
	return n.deps
}

// upstream returns n and everything it depends on, dependencies first.
func (n *Node) upstream(skip func(*Node) bool) []*Node {
	order := make([]*Node, 0, len(n.deps)+1)
	visited := make(map[*Node]struct{})

	var visit func(*Node)
	visit = func(node *Node) {
		if _, ok := visited[node]; ok || skip(node) {
			return
		}
		visited[node] = struct{}{}

		for _, dep := range node.deps {
			visit(dep)
		}

		order = append(order, node)
	}
	visit(n)

	return order
}
