package internal

// Offsets keeps prefix sums over a sequence of block lengths as a Fenwick tree.
// Add and Prefix are O(log n), Reset is O(n).
type Offsets struct {
	// 1-based, tree[i] sums the lengths of blocks (i - i&-i, i]
	tree []int
}

func (o *Offsets) Reset(lengths []int) {
	o.tree = make([]int, len(lengths)+1)
	for i := 1; i < len(o.tree); i++ {
		o.tree[i] += lengths[i-1]
		if j := i + i&-i; j < len(o.tree) {
			o.tree[j] += o.tree[i]
		}
	}
}

func (o *Offsets) Len() int {
	if len(o.tree) == 0 {
		return 0
	}
	return len(o.tree) - 1
}

// Add changes the length of block i by delta.
func (o *Offsets) Add(i, delta int) {
	for j := i + 1; j < len(o.tree); j += j & -j {
		o.tree[j] += delta
	}
}

// Prefix returns the total length of the blocks before block i.
func (o *Offsets) Prefix(i int) int {
	sum := 0
	for j := min(i, o.Len()); j > 0; j -= j & -j {
		sum += o.tree[j]
	}

	return sum
}
