package patterns

import "sort"

// Graph is an undirected graph over item IDs. Nodes keep insertion order so
// component membership is reported deterministically.
type Graph struct {
	order []string
	adj   map[string]map[string]bool
}

func NewGraph() *Graph {
	return &Graph{adj: make(map[string]map[string]bool)}
}

// AddNode adds id if it is not already present.
func (g *Graph) AddNode(id string) {
	if _, ok := g.adj[id]; ok {
		return
	}
	g.adj[id] = make(map[string]bool)
	g.order = append(g.order, id)
}

// AddEdge connects a and b, adding either node as needed. Self loops are
// ignored.
func (g *Graph) AddEdge(a, b string) {
	if a == b {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	g.adj[a][b] = true
	g.adj[b][a] = true
}

// HasEdge reports whether a and b are directly connected.
func (g *Graph) HasEdge(a, b string) bool {
	return g.adj[a][b]
}

func (g *Graph) Len() int { return len(g.order) }

// Components returns the connected components found by breadth-first
// search. Components are ordered by their earliest node and members keep
// node insertion order.
func (g *Graph) Components() [][]string {
	rank := make(map[string]int, len(g.order))
	for i, id := range g.order {
		rank[id] = i
	}

	visited := make(map[string]bool, len(g.order))
	var comps [][]string
	for _, start := range g.order {
		if visited[start] {
			continue
		}
		visited[start] = true

		var members []string
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			for next := range g.adj[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		sort.Slice(members, func(i, j int) bool { return rank[members[i]] < rank[members[j]] })
		comps = append(comps, members)
	}
	return comps
}
