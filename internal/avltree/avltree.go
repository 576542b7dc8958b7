// Package avltree implements a self-balancing AVL tree ordered by a
// (float64, uint64) key, exposing its current root in O(1). The model
// package uses it as the ordered inverse view behind each score table:
// the root is a cheap median proxy, and repeatedly deleting the root
// is how "prune from the middle, keep the extremes" is implemented.
package avltree

// Key orders entries primarily by Score; Seq breaks ties between
// equal scores using insertion order, so the tree never has to compare
// the payload value itself.
type Key struct {
	Score float64
	Seq   uint64
}

func (a Key) less(b Key) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Seq < b.Seq
}

type node[V any] struct {
	key         Key
	value       V
	left, right *node[V]
	height      int
}

// Tree is an AVL tree keyed by Key, holding values of type V.
type Tree[V any] struct {
	root *node[V]
	size int
	next uint64
}

// Len returns the number of entries in the tree.
func (t *Tree[V]) Len() int { return t.size }

// NextSeq returns the tie-breaking sequence number that Insert will
// assign to the next entry with a given score, without inserting
// anything. Callers that need to remember a Key to later Delete an
// entry should call Insert and keep the returned Key instead.
func (t *Tree[V]) NextSeq() uint64 { return t.next }

// Insert adds value under score, returning the Key assigned to it
// (needed to Delete this specific entry later, since scores aren't
// unique).
func (t *Tree[V]) Insert(score float64, value V) Key {
	key := Key{Score: score, Seq: t.next}
	t.next++
	t.root = insert(t.root, key, value)
	t.size++
	return key
}

// Delete removes the entry with the given key, if present.
func (t *Tree[V]) Delete(key Key) bool {
	var removed bool
	t.root, removed = remove(t.root, key)
	if removed {
		t.size--
	}
	return removed
}

// Root returns the entry currently at the tree's root, or false if the
// tree is empty. This is O(1) and is the median-approximation hook the
// model's Forward/UpdateModel operations read.
func (t *Tree[V]) Root() (Key, V, bool) {
	if t.root == nil {
		var zero V
		return Key{}, zero, false
	}
	return t.root.key, t.root.value, true
}

// DeleteRoot removes and returns the current root entry.
func (t *Tree[V]) DeleteRoot() (Key, V, bool) {
	key, value, ok := t.Root()
	if !ok {
		return key, value, false
	}
	t.Delete(key)
	return key, value, true
}

func height[V any](n *node[V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func balanceFactor[V any](n *node[V]) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func updateHeight[V any](n *node[V]) {
	l, r := height(n.left), height(n.right)
	if l > r {
		n.height = l + 1
	} else {
		n.height = r + 1
	}
}

func rotateRight[V any](n *node[V]) *node[V] {
	l := n.left
	n.left = l.right
	l.right = n
	updateHeight(n)
	updateHeight(l)
	return l
}

func rotateLeft[V any](n *node[V]) *node[V] {
	r := n.right
	n.right = r.left
	r.left = n
	updateHeight(n)
	updateHeight(r)
	return r
}

func rebalance[V any](n *node[V]) *node[V] {
	updateHeight(n)
	bf := balanceFactor(n)
	if bf > 1 {
		if balanceFactor(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	}
	if bf < -1 {
		if balanceFactor(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

func insert[V any](n *node[V], key Key, value V) *node[V] {
	if n == nil {
		return &node[V]{key: key, value: value, height: 1}
	}
	if key.less(n.key) {
		n.left = insert(n.left, key, value)
	} else {
		n.right = insert(n.right, key, value)
	}
	return rebalance(n)
}

func remove[V any](n *node[V], key Key) (*node[V], bool) {
	if n == nil {
		return nil, false
	}
	var removed bool
	switch {
	case key.less(n.key):
		n.left, removed = remove(n.left, key)
	case n.key.less(key):
		n.right, removed = remove(n.right, key)
	default:
		removed = true
		switch {
		case n.left == nil:
			return n.right, true
		case n.right == nil:
			return n.left, true
		default:
			successor := n.right
			for successor.left != nil {
				successor = successor.left
			}
			n.key, n.value = successor.key, successor.value
			n.right, _ = remove(n.right, successor.key)
		}
	}
	if !removed {
		return n, false
	}
	return rebalance(n), true
}
