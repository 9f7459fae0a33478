package departments

import (
	"sort"

	"github.com/hugh/staff-manager/internal/database/models"
)

// MaxDepth bounds subtree walks so corrupted parent links cannot loop forever.
const MaxDepth = 64

type Node struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	ParentID uint    `json:"parentId"`
	Children []*Node `json:"children"`
}

func childIndex(rows []models.Department) map[uint][]models.Department {
	children := make(map[uint][]models.Department, len(rows))
	for _, row := range rows {
		children[row.ParentIDOrZero()] = append(children[row.ParentIDOrZero()], row)
	}
	for parent := range children {
		sort.Slice(children[parent], func(i, j int) bool {
			return children[parent][i].ID < children[parent][j].ID
		})
	}
	return children
}

// Descendants returns rootID followed by the ids of every department below it.
// The walk is breadth first; ids already seen are skipped and levels beyond MaxDepth are ignored.
func Descendants(rows []models.Department, rootID uint) []uint {
	children := childIndex(rows)

	ids := []uint{rootID}
	visited := map[uint]bool{rootID: true}
	level := []uint{rootID}

	for depth := 0; depth < MaxDepth && len(level) > 0; depth++ {
		var next []uint
		for _, id := range level {
			for _, child := range children[id] {
				if visited[child.ID] {
					continue
				}
				visited[child.ID] = true
				ids = append(ids, child.ID)
				next = append(next, child.ID)
			}
		}
		level = next
	}

	return ids
}

// BuildTree nests flat rows under their parents. Rows whose parent is missing become roots.
func BuildTree(rows []models.Department) []*Node {
	present := make(map[uint]bool, len(rows))
	for _, row := range rows {
		present[row.ID] = true
	}

	children := childIndex(rows)
	visited := make(map[uint]bool, len(rows))

	var build func(row models.Department, depth int) *Node
	build = func(row models.Department, depth int) *Node {
		visited[row.ID] = true
		node := &Node{ID: row.ID, Name: row.Name, ParentID: row.ParentIDOrZero(), Children: []*Node{}}
		if depth >= MaxDepth {
			return node
		}
		for _, child := range children[row.ID] {
			if visited[child.ID] {
				continue
			}
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}

	sorted := make([]models.Department, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	roots := []*Node{}
	for _, row := range sorted {
		if row.ParentID != nil && present[*row.ParentID] {
			continue
		}
		roots = append(roots, build(row, 0))
	}
	return roots
}
