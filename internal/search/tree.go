package search

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Node is a search-tree node carrying the plan it evaluated and its backed-up statistics.
type Node struct {
	ID       int64
	Action   string
	Value    float64
	Visits   int
	Parent   *Node
	Children []*Node
}

// AddChild attaches child under n and returns it.
func (n *Node) AddChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

func (n *Node) Stats() NodeStats {
	return NodeStats{Value: n.Value, Visits: n.Visits}
}

// Backpropagate adds reward to n and every ancestor and bumps their visit counts.
func (n *Node) Backpropagate(reward float64) {
	for cur := n; cur != nil; cur = cur.Parent {
		cur.Visits++
		cur.Value += reward
	}
}

// WriteTree writes an indented visits/value dump of the subtree rooted at root.
func WriteTree(w io.Writer, root *Node) error {
	return writeNode(w, root, 0)
}

func writeNode(w io.Writer, n *Node, depth int) error {
	if n == nil {
		return nil
	}
	avg := 0.0
	if n.Visits > 0 {
		avg = n.Value / float64(n.Visits)
	}
	label := fmt.Sprintf("node %d", n.ID)
	if n.Action != "" {
		label += " (" + n.Action + ")"
	}
	if _, err := fmt.Fprintf(w, "%s%s visits=%d value=%.4f avg=%.4f\n",
		strings.Repeat("  ", depth), label, n.Visits, n.Value, avg); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := writeNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// WriteTreeFile dumps the tree to dir/tree_<iteration>.txt, creating dir if needed.
func WriteTreeFile(dir string, iteration int, root *Node) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create tree dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("tree_%d.txt", iteration))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create tree file: %w", err)
	}
	if err := WriteTree(f, root); err != nil {
		f.Close()
		return "", fmt.Errorf("write tree: %w", err)
	}
	return path, f.Close()
}
