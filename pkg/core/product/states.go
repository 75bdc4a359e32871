package product

import "encoding/xml"

type state int

const (
	stateDocument state = iota // before the import element
	stateTop                   // inside import, no product open
	stateInRecord              // inside product
	stateGlobalScope           // inside global
	stateStoreViewScope        // inside store_view
	stateInField               // inside a field element of a scope
	stateDone                  // import closed
)

func (s state) String() string {
	switch s {
	case stateDocument:
		return "Document"
	case stateTop:
		return "Top"
	case stateInRecord:
		return "InRecord"
	case stateGlobalScope:
		return "InFieldScope(global)"
	case stateStoreViewScope:
		return "InFieldScope(store_view)"
	case stateInField:
		return "InField"
	case stateDone:
		return "Done"
	default:
		return "unknown"
	}
}

type openFunc func(p *Parser, el xml.StartElement) (state, error)

type assignFunc func(p *Parser, text string)

// openTransitions is the complete element-open table. A (state, element) pair
// that is not listed is a structural error; stateInField and stateDone accept
// no child elements at all.
var openTransitions = map[state]map[string]openFunc{
	stateDocument: {
		"import": func(*Parser, xml.StartElement) (state, error) { return stateTop, nil },
	},
	stateTop: {
		"product": openProduct,
	},
	stateInRecord: {
		"global":     openGlobal,
		"store_view": openStoreView,
	},
	stateGlobalScope:    fieldOpeners(globalFields),
	stateStoreViewScope: fieldOpeners(storeViewFields),
}

var scalarFields = []string{
	"name",
	"price",
	"special_price",
	"description",
	"short_description",
	"meta_title",
	"meta_description",
	"url_key",
	"status",
	"visibility",
	"weight",
}

var globalFields = buildFields(map[string]assignFunc{
	"select":          assignOption,
	"category":        assignCategory,
	"super_attribute": assignSuperAttribute,
	"variant":         assignVariant,
})

var storeViewFields = buildFields(map[string]assignFunc{
	"select": assignOption,
})

var fieldsByScope = map[state]map[string]assignFunc{
	stateGlobalScope:    globalFields,
	stateStoreViewScope: storeViewFields,
}

func buildFields(extra map[string]assignFunc) map[string]assignFunc {
	fields := make(map[string]assignFunc, len(scalarFields)+len(extra))
	for _, code := range scalarFields {
		fields[code] = assignScalar(code)
	}
	for name, fn := range extra {
		fields[name] = fn
	}
	return fields
}

func fieldOpeners(fields map[string]assignFunc) map[string]openFunc {
	openers := make(map[string]openFunc, len(fields))
	for name := range fields {
		openers[name] = openField
	}
	return openers
}

func openProduct(p *Parser, el xml.StartElement) (state, error) {
	typ, _ := attr(el, "type")
	kind, ok := ParseKind(typ)
	if !ok {
		return 0, p.errorf(el.Name.Local, "unknown product type %q", typ)
	}
	sku, _ := attr(el, "sku")
	set, _ := attr(el, "attribute_set")

	p.record = NewProduct(sku, kind, NewReference(set), p.Line())
	if p.record.SKU() == "" {
		p.record.AddError("missing sku")
	}
	return stateInRecord, nil
}

func openGlobal(p *Parser, el xml.StartElement) (state, error) {
	if p.globalSeen {
		return 0, p.errorf(el.Name.Local, "duplicate element")
	}
	p.globalSeen = true
	p.scope = p.record.Global()
	p.scopeState = stateGlobalScope
	return stateGlobalScope, nil
}

func openStoreView(p *Parser, el xml.StartElement) (state, error) {
	code, _ := attr(el, "code")
	code = NewReference(code).Name()
	if code == "" {
		return 0, p.errorf(el.Name.Local, "missing code attribute")
	}
	if code == GlobalScope {
		return 0, p.errorf(el.Name.Local, "reserved store view code %q", code)
	}
	p.scope = p.record.StoreView(code)
	p.scopeState = stateStoreViewScope
	return stateStoreViewScope, nil
}

func openField(p *Parser, el xml.StartElement) (state, error) {
	p.field = el.Name.Local
	p.fieldCode = ""
	if p.field == "select" {
		code, _ := attr(el, "code")
		if code = NewReference(code).Name(); code == "" {
			return 0, p.errorf(p.field, "missing code attribute")
		}
		p.fieldCode = code
	}
	p.text.Reset()
	return stateInField, nil
}

func assignScalar(code string) assignFunc {
	return func(p *Parser, text string) {
		p.scope.Set(code, text)
	}
}

func assignOption(p *Parser, text string) {
	p.scope.SetOption(p.fieldCode, text)
}

func assignCategory(p *Parser, text string) {
	ref := NewReference(text)
	if ref.IsEmpty() {
		p.record.AddError("empty category path")
		return
	}
	p.record.Categories = append(p.record.Categories, ref)
}

func assignSuperAttribute(p *Parser, text string) {
	if p.record.Kind != KindConfigurable {
		p.record.AddErrorf("super_attribute is only allowed on configurable products")
		return
	}
	if text != "" {
		p.record.SuperAttributes = append(p.record.SuperAttributes, text)
	}
}

func assignVariant(p *Parser, text string) {
	if p.record.Kind != KindConfigurable {
		p.record.AddErrorf("variant is only allowed on configurable products")
		return
	}
	if ref := NewReference(text); !ref.IsEmpty() {
		p.record.Variants = append(p.record.Variants, ref)
	}
}
