package value

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2/unstable"
)

// SyntaxError reports a document that is not valid TOML, or that redefines
// a key or table. Key is the path of the redefined key, if any.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
	Key    string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return "toml: " + e.Msg
	}
	return fmt.Sprintf("toml: line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

type tableState int

const (
	stateImplicit tableState = iota // created while navigating a [header]
	stateHeader                     // defined by its own [header]
	stateDotted                     // created by a dotted key
	stateFrozen                     // inline table or static array
)

type position struct {
	line, col int
}

type decoder struct {
	p     *unstable.Parser
	lines []int

	root        *Node
	current     *Node
	currentPath string

	state map[*Node]tableState
	aot   map[*Node]bool
}

// Decode parses TOML text into a value tree. Table keys keep the order in
// which they appear in the text.
func Decode(data []byte) (*Node, error) {
	p := &unstable.Parser{}
	p.Reset(data)

	d := &decoder{
		p:     p,
		lines: lineStarts(data),
		root:  NewTable(),
		state: make(map[*Node]tableState),
		aot:   make(map[*Node]bool),
	}
	d.root.Line = 1
	d.current = d.root

	for p.NextExpression() {
		if err := d.expression(p.Expression()); err != nil {
			return nil, err
		}
	}
	if err := p.Error(); err != nil {
		return nil, d.parserError(err)
	}
	return d.root, nil
}

func (d *decoder) expression(expr *unstable.Node) error {
	switch expr.Kind {
	case unstable.KeyValue:
		return d.keyValue(d.current, d.currentPath, expr)
	case unstable.Table:
		return d.table(expr)
	case unstable.ArrayTable:
		return d.arrayTable(expr)
	}
	return nil
}

func (d *decoder) table(expr *unstable.Node) error {
	keys, pos := d.keys(expr)
	parent, path, err := d.descendHeader(keys[:len(keys)-1], pos)
	if err != nil {
		return err
	}
	last := keys[len(keys)-1]
	path = JoinPath(path, last)

	existing, ok := parent.Get(last)
	switch {
	case !ok:
		t := NewTable()
		t.Line = pos.line
		parent.Set(last, t)
		d.state[t] = stateHeader
		d.current = t
	case existing.Kind == KindTable && d.state[existing] == stateImplicit && existing != d.root:
		d.state[existing] = stateHeader
		existing.Line = pos.line
		d.current = existing
	default:
		return d.redefined(pos, path, "table %s is already defined", path)
	}
	d.currentPath = path
	return nil
}

func (d *decoder) arrayTable(expr *unstable.Node) error {
	keys, pos := d.keys(expr)
	parent, path, err := d.descendHeader(keys[:len(keys)-1], pos)
	if err != nil {
		return err
	}
	last := keys[len(keys)-1]
	path = JoinPath(path, last)

	arr, ok := parent.Get(last)
	switch {
	case !ok:
		arr = NewArray()
		arr.Line = pos.line
		parent.Set(last, arr)
		d.aot[arr] = true
	case arr.Kind == KindArray && d.aot[arr]:
	default:
		return d.redefined(pos, path, "key %s is already defined as a %s", path, arr.Kind)
	}

	t := NewTable()
	t.Line = pos.line
	d.state[t] = stateHeader
	arr.Append(t)
	d.current = t
	d.currentPath = IndexPath(path, arr.Len()-1)
	return nil
}

// descendHeader walks the intermediate keys of a [header], creating tables
// as needed and stepping into the last element of arrays of tables.
func (d *decoder) descendHeader(keys []string, pos position) (*Node, string, error) {
	cur, path := d.root, ""
	for _, key := range keys {
		path = JoinPath(path, key)
		next, ok := cur.Get(key)
		if !ok {
			next = NewTable()
			next.Line = pos.line
			cur.Set(key, next)
			d.state[next] = stateImplicit
			cur = next
			continue
		}
		switch {
		case next.Kind == KindTable && d.state[next] != stateFrozen:
			cur = next
		case next.Kind == KindArray && d.aot[next]:
			cur = next.items[len(next.items)-1]
			path = IndexPath(path, len(next.items)-1)
		default:
			return nil, "", d.redefined(pos, path, "key %s is already defined as a %s", path, next.Kind)
		}
	}
	return cur, path, nil
}

func (d *decoder) keyValue(into *Node, base string, expr *unstable.Node) error {
	keys, pos := d.keys(expr)

	cur, path := into, base
	for _, key := range keys[:len(keys)-1] {
		path = JoinPath(path, key)
		next, ok := cur.Get(key)
		if !ok {
			next = NewTable()
			next.Line = pos.line
			cur.Set(key, next)
			d.state[next] = stateDotted
			cur = next
			continue
		}
		if next.Kind != KindTable || d.state[next] != stateDotted {
			return d.redefined(pos, path, "key %s is already defined", path)
		}
		cur = next
	}

	last := keys[len(keys)-1]
	path = JoinPath(path, last)
	if cur.Has(last) {
		return d.redefined(pos, path, "key %s is already defined", path)
	}
	v, err := d.value(expr.Value(), path, pos)
	if err != nil {
		return err
	}
	cur.Set(last, v)
	return nil
}

func (d *decoder) value(n *unstable.Node, path string, pos position) (*Node, error) {
	var v *Node
	switch n.Kind {
	case unstable.String:
		v = String(string(n.Data))
	case unstable.Bool:
		v = Bool(string(n.Data) == "true")
	case unstable.Integer:
		i, err := parseInteger(string(n.Data))
		if err != nil {
			return nil, d.errorf(pos, "%s: %v", path, err)
		}
		v = Int(i)
	case unstable.Float:
		f, err := parseFloat(string(n.Data))
		if err != nil {
			return nil, d.errorf(pos, "%s: %v", path, err)
		}
		v = Float(f)
	case unstable.LocalDate, unstable.LocalTime, unstable.LocalDateTime, unstable.DateTime:
		v = Datetime(string(n.Data))
	case unstable.Array:
		v = NewArray()
		it := n.Children()
		for i := 0; it.Next(); i++ {
			item, err := d.value(it.Node(), IndexPath(path, i), pos)
			if err != nil {
				return nil, err
			}
			v.Append(item)
		}
		d.state[v] = stateFrozen
	case unstable.InlineTable:
		v = NewTable()
		it := n.Children()
		for it.Next() {
			if err := d.keyValue(v, path, it.Node()); err != nil {
				return nil, err
			}
		}
		d.freeze(v)
	default:
		return nil, d.errorf(pos, "%s: unsupported value", path)
	}
	v.Line = pos.line
	return v, nil
}

func (d *decoder) freeze(n *Node) {
	d.state[n] = stateFrozen
	for _, e := range n.entries {
		if e.Value.Kind == KindTable {
			d.freeze(e.Value)
		}
	}
}

func (d *decoder) keys(expr *unstable.Node) ([]string, position) {
	var (
		keys []string
		pos  position
	)
	it := expr.Key()
	for it.Next() {
		k := it.Node()
		if len(keys) == 0 && k.Raw.Length > 0 {
			pos = d.position(int(k.Raw.Offset))
		}
		keys = append(keys, string(k.Data))
	}
	return keys, pos
}

func (d *decoder) position(offset int) position {
	line := sort.Search(len(d.lines), func(i int) bool { return d.lines[i] > offset })
	if line == 0 {
		return position{line: 1, col: offset + 1}
	}
	return position{line: line, col: offset - d.lines[line-1] + 1}
}

func (d *decoder) errorf(pos position, format string, args ...any) error {
	return &SyntaxError{Line: pos.line, Column: pos.col, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) redefined(pos position, key, format string, args ...any) error {
	return &SyntaxError{Line: pos.line, Column: pos.col, Msg: fmt.Sprintf(format, args...), Key: key}
}

func (d *decoder) parserError(err error) error {
	var perr *unstable.ParserError
	if !errors.As(err, &perr) {
		return &SyntaxError{Msg: err.Error()}
	}
	var pos position
	if len(perr.Highlight) > 0 {
		pos = d.position(int(d.p.Range(perr.Highlight).Offset))
	}
	return &SyntaxError{Line: pos.line, Column: pos.col, Msg: perr.Message}
}

func lineStarts(data []byte) []int {
	starts := []int{0}
	for i, c := range data {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func parseInteger(s string) (int64, error) {
	s = strings.ReplaceAll(s, "_", "")
	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return i, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.ReplaceAll(s, "_", "")
	switch strings.TrimLeft(s, "+-") {
	case "nan":
		return math.NaN(), nil
	case "inf":
		if strings.HasPrefix(s, "-") {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", s)
	}
	return f, nil
}

// FormatInline renders n as a TOML inline value: scalars as literals,
// arrays as [a, b] and tables as { k = v }.
func FormatInline(n *Node) string {
	var b strings.Builder
	writeInline(&b, n)
	return b.String()
}

func writeInline(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindString:
		b.WriteString(QuoteString(n.str))
	case KindInteger:
		b.WriteString(strconv.FormatInt(n.num, 10))
	case KindFloat:
		b.WriteString(formatFloat(n.fl))
	case KindBoolean:
		b.WriteString(strconv.FormatBool(n.flag))
	case KindDatetime:
		b.WriteString(n.str)
	case KindArray:
		b.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeInline(b, item)
		}
		b.WriteByte(']')
	case KindTable:
		if len(n.entries) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{ ")
		for i, e := range n.entries {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(QuoteKey(e.Key))
			b.WriteString(" = ")
			writeInline(b, e.Value)
		}
		b.WriteString(" }")
	}
}

// QuoteString returns s as a TOML basic string.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f || r == utf8.RuneError {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
