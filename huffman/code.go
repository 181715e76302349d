package huffman

import (
	"container/heap"
	"fmt"
	"sort"
)

// maxCodeLen bounds canonical code lengths. Depth grows with the Fibonacci
// sequence of the total sample weight, so any sample below ~17TB stays far
// under 64 bits; the bound exists to reject hostile side tables.
const maxCodeLen = 63

type treeNode struct {
	sym   Symbol
	count uint64
	seq   int // insertion order; breaks count ties deterministically
	left  *treeNode
	right *treeNode
}

// nodeHeap is a min-heap over (count, seq).
type nodeHeap []*treeNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].count != h[j].count {
		return h[i].count < h[j].count
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(*treeNode)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// CodeTable maps symbols to canonical prefix codes. The zero value is the
// empty table (alphabet of size zero).
type CodeTable struct {
	lengths []uint8  // per symbol; 0 marks an unused symbol
	codes   []uint64 // right-aligned canonical code bits
	count   int      // symbols with a nonzero length
}

// BuildCodeTable constructs the optimal prefix code for m by the classic
// greedy merge of the two lowest-count nodes. An empty model yields the
// empty table. A single-symbol alphabet is assigned a 1-bit code so the
// bitstream stays well formed.
func BuildCodeTable(m *Model) (*CodeTable, error) {
	t := &CodeTable{
		lengths: make([]uint8, len(m.counts)),
		codes:   make([]uint64, len(m.counts)),
	}

	h := make(nodeHeap, 0, 64)
	seq := 0
	for s, c := range m.counts {
		if c == 0 {
			continue
		}
		h = append(h, &treeNode{sym: Symbol(s), count: c, seq: seq})
		seq++
	}
	if len(h) == 0 {
		return t, nil
	}
	heap.Init(&h)

	for h.Len() > 1 {
		a := heap.Pop(&h).(*treeNode)
		b := heap.Pop(&h).(*treeNode)
		heap.Push(&h, &treeNode{
			count: a.count + b.count,
			seq:   seq,
			left:  a,
			right: b,
		})
		seq++
	}
	root := h[0]

	if err := t.measure(root); err != nil {
		return nil, err
	}
	if err := t.assignCodes(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewCodeTableFromLengths rebuilds the table a decoder needs from serialized
// code lengths alone. Lengths that cannot form a prefix code are rejected.
func NewCodeTableFromLengths(lengths []uint8) (*CodeTable, error) {
	t := &CodeTable{
		lengths: lengths,
		codes:   make([]uint64, len(lengths)),
	}
	if err := t.assignCodes(); err != nil {
		return nil, err
	}
	return t, nil
}

// measure records the depth of every leaf as its code length. The lone-leaf
// tree gets depth 1, not 0.
func (t *CodeTable) measure(root *treeNode) error {
	type item struct {
		n *treeNode
		d int
	}
	stack := []item{{root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.n.left == nil { // full binary tree: left==nil means leaf
			d := it.d
			if d == 0 {
				d = 1
			}
			if d > maxCodeLen {
				return fmt.Errorf("huffman: code length %d exceeds limit", d)
			}
			t.lengths[it.n.sym] = uint8(d)
			continue
		}
		stack = append(stack, item{it.n.left, it.d + 1}, item{it.n.right, it.d + 1})
	}
	return nil
}

// assignCodes derives canonical codes from lengths: symbols sorted by
// (length, symbol value), consecutive codes within a length group, a left
// shift between groups. Both encoder and decoder run this, so the lengths
// alone pin down the whole code.
func (t *CodeTable) assignCodes() error {
	order := make([]Symbol, 0, 64)
	for s, l := range t.lengths {
		if l == 0 {
			continue
		}
		if l > maxCodeLen {
			return fmt.Errorf("%w: code length %d out of range", ErrCorruptStream, l)
		}
		order = append(order, Symbol(s))
	}
	t.count = len(order)
	if len(order) == 0 {
		return nil
	}
	sort.Slice(order, func(i, j int) bool {
		li, lj := t.lengths[order[i]], t.lengths[order[j]]
		if li != lj {
			return li < lj
		}
		return order[i] < order[j]
	})

	code := uint64(0)
	prev := t.lengths[order[0]]
	for _, s := range order {
		cur := t.lengths[s]
		code <<= cur - prev
		prev = cur
		if code >= 1<<cur {
			return fmt.Errorf("%w: code lengths oversubscribe the code space", ErrCorruptStream)
		}
		t.codes[s] = code
		code++
	}
	return nil
}

// SymbolCount returns the number of coded symbols.
func (t *CodeTable) SymbolCount() int { return t.count }

// Lengths returns a copy of the per-symbol code lengths (0 = unused).
func (t *CodeTable) Lengths() []uint8 {
	out := make([]uint8, len(t.lengths))
	copy(out, t.lengths)
	return out
}

// Code returns the canonical code bits and length for s; length 0 means s
// has no code.
func (t *CodeTable) Code(s Symbol) (uint64, uint8) {
	if int(s) >= len(t.lengths) {
		return 0, 0
	}
	return t.codes[s], t.lengths[s]
}

type decodeNode struct {
	child [2]*decodeNode
	sym   Symbol
	leaf  bool
}

// decodeTree rebuilds the bit-walk tree from the canonical codes. Lengths
// that collide (one code a prefix of another) are rejected; an incomplete
// tree is legal and simply fails at decode time if a dangling path is read.
func (t *CodeTable) decodeTree() (*decodeNode, error) {
	if t.count == 0 {
		return nil, nil
	}
	root := &decodeNode{}
	for s, l := range t.lengths {
		if l == 0 {
			continue
		}
		code := t.codes[s]
		node := root
		for bit := int(l) - 1; bit >= 0; bit-- {
			if node.leaf {
				return nil, fmt.Errorf("%w: code table is not prefix-free", ErrCorruptStream)
			}
			b := (code >> uint(bit)) & 1
			if node.child[b] == nil {
				node.child[b] = &decodeNode{}
			}
			node = node.child[b]
		}
		if node.leaf || node.child[0] != nil || node.child[1] != nil {
			return nil, fmt.Errorf("%w: code table is not prefix-free", ErrCorruptStream)
		}
		node.sym = Symbol(s)
		node.leaf = true
	}
	return root, nil
}
