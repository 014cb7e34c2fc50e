package odt

// Style is a flattened style record. Properties absent from the XML stay empty.
type Style struct {
	FontSize    string `json:"fontSize,omitempty"`
	FontWeight  string `json:"fontWeight,omitempty"`
	Color       string `json:"color,omitempty"`
	TextAlign   string `json:"textAlign,omitempty"`
	MarginLeft  string `json:"marginLeft,omitempty"`
	MarginRight string `json:"marginRight,omitempty"`
}

// IsZero reports whether no property is set.
func (s Style) IsZero() bool {
	return s == Style{}
}

// over returns s with every property set in o applied on top.
func (s Style) over(o Style) Style {
	if o.FontSize != "" {
		s.FontSize = o.FontSize
	}
	if o.FontWeight != "" {
		s.FontWeight = o.FontWeight
	}
	if o.Color != "" {
		s.Color = o.Color
	}
	if o.TextAlign != "" {
		s.TextAlign = o.TextAlign
	}
	if o.MarginLeft != "" {
		s.MarginLeft = o.MarginLeft
	}
	if o.MarginRight != "" {
		s.MarginRight = o.MarginRight
	}
	return s
}

type styleDef struct {
	parent string
	own    Style
}

// StyleMap resolves style names, following style:parent-style-name chains.
type StyleMap struct {
	defs map[string]styleDef
}

func newStyleMap() *StyleMap {
	return &StyleMap{defs: make(map[string]styleDef)}
}

// collect registers every style:style element below root. Later calls
// override earlier definitions with the same name.
func (m *StyleMap) collect(root *element) {
	if root == nil {
		return
	}
	var walk func(*element)
	walk = func(e *element) {
		if e.is(nsStyle, "style") {
			if name := e.attr(nsStyle, "name"); name != "" {
				m.defs[name] = styleDef{
					parent: e.attr(nsStyle, "parent-style-name"),
					own:    ownStyle(e),
				}
			}
			return
		}
		for _, c := range e.children {
			walk(c)
		}
	}
	walk(root)
}

func ownStyle(e *element) Style {
	var s Style
	if tp := e.child(nsStyle, "text-properties"); tp != nil {
		s.FontSize = tp.attr(nsFO, "font-size")
		s.FontWeight = tp.attr(nsFO, "font-weight")
		s.Color = tp.attr(nsFO, "color")
	}
	if pp := e.child(nsStyle, "paragraph-properties"); pp != nil {
		s.TextAlign = pp.attr(nsFO, "text-align")
		s.MarginLeft = pp.attr(nsFO, "margin-left")
		s.MarginRight = pp.attr(nsFO, "margin-right")
	}
	return s
}

// Resolve returns the flattened style for name. Unknown names resolve to the zero Style.
func (m *StyleMap) Resolve(name string) Style {
	var chain []Style
	seen := make(map[string]bool)
	for name != "" && !seen[name] {
		def, ok := m.defs[name]
		if !ok {
			break
		}
		seen[name] = true
		chain = append(chain, def.own)
		name = def.parent
	}
	var out Style
	for i := len(chain) - 1; i >= 0; i-- {
		out = out.over(chain[i])
	}
	return out
}

// Len reports how many named styles are defined.
func (m *StyleMap) Len() int {
	return len(m.defs)
}
