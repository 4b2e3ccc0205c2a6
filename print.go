package itree

import (
	"fmt"
	"io"
	"strings"
)

// Write the structure of the tree, marking the active node
func (t *Tree) Print(w io.Writer) {
	fmt.Fprintln(w, "------------------------- ITree Structure ---------------------------")
	if t.root == nil {
		fmt.Fprintln(w, "(empty)")
		return
	}
	fmt.Fprint(w, t.root)
	if t.root == t.current {
		fmt.Fprint(w, " (active)")
	}
	fmt.Fprintln(w)
	t.printNode(w, t.root, "")
}

func (t *Tree) printNode(w io.Writer, n *Node, edges string) {
	if n.left != nil {
		fmt.Fprintf(w, "%s+-- L:%v", edges, n.left)
		if t.current == n.left {
			fmt.Fprint(w, " (active)")
		}
		fmt.Fprintln(w)
		if n.right != nil {
			t.printNode(w, n.left, edges+"|   ")
		} else {
			t.printNode(w, n.left, edges+"    ")
		}
	}
	if n.right != nil {
		fmt.Fprintf(w, "%s+-- R:%v", edges, n.right)
		if t.current == n.right {
			fmt.Fprint(w, " (active)")
		}
		fmt.Fprintln(w)
		t.printNode(w, n.right, edges+"    ")
	}
}

// Write every entry of the subsumption table
func (t *Tree) PrintTable(w io.Writer) {
	fmt.Fprintln(w, "------------------------- Subsumption Table -------------------------")
	for _, e := range t.table {
		e.Print(w)
	}
}

// Write the visit count of every recorded program point
func (t *Tree) DumpBlocks(w io.Writer) {
	t.blocks.dump(w)
}

// The Newick representation of the tree structure
func (t *Tree) Newick() string {
	if t.root == nil {
		return ";"
	}
	return t.root.newick() + ";"
}

func (n *Node) newick() string {
	out := strings.Builder{}
	if !n.IsLeaf() {
		out.WriteString("(")
		children := []string{}
		for _, child := range []*Node{n.left, n.right} {
			if child != nil {
				children = append(children, child.newick())
			}
		}
		out.WriteString(strings.Join(children, ","))
		out.WriteString(")")
	}
	out.WriteString(fmt.Sprintf("\"%v\"", n))
	return out.String()
}

// Write the node and its subtree, including every chain
func (n *Node) Print(w io.Writer) {
	n.print(w, 0)
}

func (n *Node) print(w io.Writer, depth int) {
	tabs := strings.Repeat("\t", depth)
	next := tabs + "\t"

	fmt.Fprintf(w, "%sITreeNode\n", tabs)
	fmt.Fprintf(w, "%snode Id = %v\n", next, n)
	fmt.Fprintf(w, "%spathCondition = ", next)
	if n.pathCondition == nil {
		fmt.Fprint(w, "NULL")
	} else {
		n.pathCondition.Print(w)
	}
	fmt.Fprintln(w)
	for _, child := range []struct {
		name string
		node *Node
	}{{"Left", n.left}, {"Right", n.right}} {
		fmt.Fprintf(w, "%s%s:\n", next, child.name)
		if child.node == nil {
			fmt.Fprintf(w, "%sNULL\n", next)
		} else {
			child.node.print(w, depth+1)
			fmt.Fprintln(w)
		}
	}
}
