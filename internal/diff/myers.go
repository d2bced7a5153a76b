package diff

import "slices"

type GroupType string

const (
	Unchanged GroupType = "unchanged"
	Removed   GroupType = "removed"
	Added     GroupType = "added"
)

// Group is a run of lines sharing one fate in an edit script.
type Group struct {
	Type  GroupType `json:"type"`
	Lines []string  `json:"lines"`
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type op struct {
	kind opKind
	line string
}

// Lines computes a shortest edit script from a to b with Myers' O(ND)
// algorithm and groups it into runs. Inside a changed hunk the removed run
// always precedes the added run.
func Lines(a, b []string) []Group {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	ops := make([]op, 0, len(a)+len(b))
	for _, l := range a[:prefix] {
		ops = append(ops, op{opEqual, l})
	}
	ops = append(ops, editScript(a[prefix:len(a)-suffix], b[prefix:len(b)-suffix])...)
	for _, l := range a[len(a)-suffix:] {
		ops = append(ops, op{opEqual, l})
	}

	return group(ops)
}

func editScript(a, b []string) []op {
	n, m := len(a), len(b)
	limit := n + m
	if limit == 0 {
		return nil
	}

	offset := limit + 1
	v := make([]int, 2*limit+3)
	var trace [][]int

search:
	for d := 0; d <= limit; d++ {
		trace = append(trace, slices.Clone(v))
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	// Walk the trace backwards from (n, m) to recover the path.
	ops := make([]op, 0, n+m)
	x, y := n, m
	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y
		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, op{opEqual, a[x]})
		}
		if d > 0 {
			if x == prevX {
				ops = append(ops, op{opInsert, b[prevY]})
			} else {
				ops = append(ops, op{opDelete, a[prevX]})
			}
		}
		x, y = prevX, prevY
	}

	slices.Reverse(ops)
	return ops
}

func group(ops []op) []Group {
	var groups []Group
	var removed, added []string

	flush := func() {
		if len(removed) > 0 {
			groups = append(groups, Group{Type: Removed, Lines: removed})
		}
		if len(added) > 0 {
			groups = append(groups, Group{Type: Added, Lines: added})
		}
		removed, added = nil, nil
	}

	for _, o := range ops {
		switch o.kind {
		case opDelete:
			removed = append(removed, o.line)
		case opInsert:
			added = append(added, o.line)
		default:
			flush()
			if n := len(groups); n > 0 && groups[n-1].Type == Unchanged {
				groups[n-1].Lines = append(groups[n-1].Lines, o.line)
			} else {
				groups = append(groups, Group{Type: Unchanged, Lines: []string{o.line}})
			}
		}
	}
	flush()

	return groups
}
