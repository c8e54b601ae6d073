// Package pathfind implements A* search over a 4-connected grid of cells.
package pathfind

import (
	"container/heap"

	"github.com/talgya/mini-town/internal/world"
)

// FindPath returns the shortest path from start to target, both inclusive,
// moving only between axis-aligned walkable neighbors at a uniform cost of 1.
// An empty path means no route exists. When several routes are equally short
// the one found first wins; open nodes with equal f-scores are expanded in
// insertion order.
func FindPath(grid world.Walkable, start, target world.Cell) []world.Cell {
	if start == target {
		return []world.Cell{target}
	}
	if !grid.IsWalkable(target.X, target.Y) {
		return nil
	}

	open := &openSet{}
	heap.Init(open)

	gScore := map[world.Cell]int{start: 0}
	cameFrom := make(map[world.Cell]world.Cell)
	closed := make(map[world.Cell]bool)

	seq := 0
	heap.Push(open, &node{cell: start, g: 0, f: world.Manhattan(start, target), seq: seq})

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		if current.cell == target {
			return reconstruct(cameFrom, start, target)
		}
		if closed[current.cell] {
			continue
		}
		closed[current.cell] = true

		for _, n := range current.cell.Neighbors4() {
			if closed[n] || !grid.IsWalkable(n.X, n.Y) {
				continue
			}
			tentative := current.g + 1
			if old, ok := gScore[n]; ok && tentative >= old {
				continue
			}
			gScore[n] = tentative
			cameFrom[n] = current.cell
			seq++
			heap.Push(open, &node{
				cell: n,
				g:    tentative,
				f:    tentative + world.Manhattan(n, target),
				seq:  seq,
			})
		}
	}

	return nil
}

func reconstruct(cameFrom map[world.Cell]world.Cell, start, target world.Cell) []world.Cell {
	path := []world.Cell{target}
	for c := target; c != start; {
		c = cameFrom[c]
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// --- Priority queue ---

type node struct {
	cell  world.Cell
	g     int
	f     int
	seq   int // insertion order, breaks f-score ties
	index int
}

type openSet []*node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*o = old[:n-1]
	return item
}
