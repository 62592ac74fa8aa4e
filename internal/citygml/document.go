package citygml

import (
	"io"
	"log/slog"
	"sort"
	"strings"
)

// Document is a parsed CityGML file plus its id index. The index is built
// once per document; reference resolution afterwards is a map lookup with a
// tree-walk fallback for ids missing from the index.
type Document struct {
	Root  *Element
	index map[string]*Element

	// srs is the first srsName seen before Root in document order. Set by
	// the streaming path, where the enclosing envelope is not part of the
	// building subtree.
	srs string
}

// Parse reads and indexes a whole CityGML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := ParseTree(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(root), nil
}

// NewDocument wraps an already-parsed element tree and builds its id index.
func NewDocument(root *Element) *Document {
	d := &Document{Root: root, index: make(map[string]*Element)}
	root.walk(func(e *Element) bool {
		if id := e.ID(); id != "" {
			if _, dup := d.index[id]; !dup {
				d.index[id] = e
			}
		}
		return true
	})
	return d
}

// Resolve follows an element's xlink:href if present, otherwise returns the
// element itself. Unresolvable references log a structured warning with
// near-miss candidates and return nil.
func (d *Document) Resolve(e *Element, log *slog.Logger) *Element {
	href := e.Href()
	if href == "" {
		return e
	}
	if target, ok := d.index[href]; ok {
		return target
	}
	// direct search in case the target's id attribute escaped indexing
	var found *Element
	d.Root.walk(func(el *Element) bool {
		if found != nil {
			return false
		}
		if el.Attr("id") == href {
			found = el
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	if log != nil {
		log.Warn("unresolved xlink reference",
			"href", href,
			"similar", strings.Join(d.similarIDs(href, 3), ","))
	}
	return nil
}

// similarIDs returns up to n indexed ids close to the missing one, to make
// typo-ridden input diagnosable from the log alone.
func (d *Document) similarIDs(want string, n int) []string {
	type scored struct {
		id   string
		dist int
	}
	var cands []scored
	for id := range d.index {
		if dist := levenshtein(want, id, 5); dist >= 0 {
			cands = append(cands, scored{id, dist})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].id < cands[j].id
	})
	out := make([]string, 0, n)
	for _, c := range cands {
		if len(out) == n {
			break
		}
		out = append(out, c.id)
	}
	return out
}

// levenshtein returns the edit distance between a and b, or -1 once it
// exceeds max (keeps the near-miss scan linear in practice).
func levenshtein(a, b string, max int) int {
	if d := len(a) - len(b); d > max || -d > max {
		return -1
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		best := cur[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = minInt(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if cur[j] < best {
				best = cur[j]
			}
		}
		if best > max {
			return -1
		}
		prev, cur = cur, prev
	}
	if prev[len(b)] > max {
		return -1
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Buildings returns all bldg:Building elements in document order.
func (d *Document) Buildings() []*Building {
	els := d.Root.Descendants("Building")
	out := make([]*Building, 0, len(els))
	for _, el := range els {
		out = append(out, &Building{El: el, doc: d})
	}
	return out
}

// SRSName returns the first srsName attribute in document order, or "".
// For a streamed building subtree that includes the declaration captured
// from the enclosing document, which always precedes the subtree.
func (d *Document) SRSName() string {
	if d.srs != "" {
		return d.srs
	}
	var srs string
	d.Root.walk(func(e *Element) bool {
		if srs != "" {
			return false
		}
		if v := e.Attr("srsName"); v != "" {
			srs = v
			return false
		}
		return true
	})
	return srs
}
