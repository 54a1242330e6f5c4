package typelib

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/wippyai/girepository/errors"
)

// Source is the YAML description of a namespace, compiled into a typelib
// by Compile.
type Source struct {
	Namespace       string       `yaml:"namespace"`
	Version         string       `yaml:"version"`
	CPrefix         string       `yaml:"c-prefix"`
	SharedLibraries []string     `yaml:"shared-libraries"`
	Dependencies    []string     `yaml:"dependencies"`
	Infos           []SourceInfo `yaml:"infos"`
}

// SourceInfo describes one entry and its children. Which fields apply
// depends on Kind.
type SourceInfo struct {
	Attributes map[string]string `yaml:"attributes"`
	Kind       string            `yaml:"kind"`
	Name       string            `yaml:"name"`
	TypeName   string            `yaml:"type-name"`
	TypeInit   string            `yaml:"type-init"`
	Deprecated bool              `yaml:"deprecated"`

	// callables
	Symbol           string      `yaml:"symbol"`
	Flags            []string    `yaml:"flags"`
	Args             []SourceArg `yaml:"args"`
	Return           *SourceType `yaml:"return"`
	ReturnTransfer   string      `yaml:"return-transfer"`
	InstanceTransfer string      `yaml:"instance-transfer"`
	MayReturnNull    bool        `yaml:"may-return-null"`
	SkipReturn       bool        `yaml:"skip-return"`
	Property         string      `yaml:"property"`
	VFunc            string      `yaml:"vfunc"`
	Invoker          string      `yaml:"invoker"`
	Signal           string      `yaml:"signal"`
	ClassClosure     string      `yaml:"class-closure"`
	TrueStopsEmit    bool        `yaml:"true-stops-emit"`
	Offset           uint32      `yaml:"offset"`

	// structs and unions
	Size          uint32               `yaml:"size"`
	Alignment     uint32               `yaml:"alignment"`
	GTypeStruct   bool                 `yaml:"gtype-struct"`
	Foreign       bool                 `yaml:"foreign"`
	Fields        []SourceField        `yaml:"fields"`
	Methods       []SourceInfo         `yaml:"methods"`
	Discriminator *SourceDiscriminator `yaml:"discriminator"`

	// enums and flags
	Values      []SourceValue `yaml:"values"`
	StorageType string        `yaml:"storage-type"`
	ErrorDomain string        `yaml:"error-domain"`

	// objects and interfaces
	Abstract         bool             `yaml:"abstract"`
	Fundamental      bool             `yaml:"fundamental"`
	Final            bool             `yaml:"final"`
	Parent           string           `yaml:"parent"`
	ClassStruct      string           `yaml:"class-struct"`
	Interfaces       []string         `yaml:"interfaces"`
	Prerequisites    []string         `yaml:"prerequisites"`
	Properties       []SourceProperty `yaml:"properties"`
	Signals          []SourceInfo     `yaml:"signals"`
	VFuncs           []SourceInfo     `yaml:"vfuncs"`
	Constants        []SourceInfo     `yaml:"constants"`
	RefFunction      string           `yaml:"ref-function"`
	UnrefFunction    string           `yaml:"unref-function"`
	SetValueFunction string           `yaml:"set-value-function"`
	GetValueFunction string           `yaml:"get-value-function"`

	// constants
	Type  *SourceType `yaml:"type"`
	Value any         `yaml:"value"`
}

// SourceArg describes a callable argument.
type SourceArg struct {
	Type            SourceType `yaml:"type"`
	Closure         *int       `yaml:"closure"`
	Destroy         *int       `yaml:"destroy"`
	Name            string     `yaml:"name"`
	Direction       string     `yaml:"direction"`
	Transfer        string     `yaml:"transfer"`
	Scope           string     `yaml:"scope"`
	Nullable        bool       `yaml:"nullable"`
	CallerAllocates bool       `yaml:"caller-allocates"`
	Optional        bool       `yaml:"optional"`
	Skip            bool       `yaml:"skip"`
}

// SourceField describes a struct or union field. Fields are readable
// unless Readable is explicitly false.
type SourceField struct {
	Type     SourceType `yaml:"type"`
	Readable *bool      `yaml:"readable"`
	Name     string     `yaml:"name"`
	Offset   uint32     `yaml:"offset"`
	Bits     uint32     `yaml:"bits"`
	Writable bool       `yaml:"writable"`
}

// SourceProperty describes an object or interface property.
type SourceProperty struct {
	Type     SourceType `yaml:"type"`
	Name     string     `yaml:"name"`
	Flags    []string   `yaml:"flags"`
	Transfer string     `yaml:"transfer"`
	Getter   string     `yaml:"getter"`
	Setter   string     `yaml:"setter"`
}

// SourceValue is an enum or flags member.
type SourceValue struct {
	Name  string `yaml:"name"`
	Value int64  `yaml:"value"`
}

// SourceDiscriminator marks a union as discriminated. Values lists the
// discriminator value selecting each field, in field order.
type SourceDiscriminator struct {
	Type   SourceType `yaml:"type"`
	Values []int64    `yaml:"values"`
	Offset uint32     `yaml:"offset"`
}

// SourceType describes a type. In YAML it is either a mapping or a
// shorthand string: a tag name ("int32", "utf8"), or a registered type
// reference ("Point", "GObject.Object"), optionally suffixed with "*".
type SourceType struct {
	Element        *SourceType `yaml:"element"`
	Key            *SourceType `yaml:"key"`
	Value          *SourceType `yaml:"value"`
	Length         *int        `yaml:"length"`
	FixedSize      *int        `yaml:"fixed-size"`
	Tag            string      `yaml:"tag"`
	Interface      string      `yaml:"interface"`
	ArrayType      string      `yaml:"array-type"`
	Pointer        bool        `yaml:"pointer"`
	ZeroTerminated bool        `yaml:"zero-terminated"`
}

type sourceTypeFields SourceType

// UnmarshalYAML accepts the string shorthand or the mapping form.
func (t *SourceType) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*t = parseTypeShorthand(s)
		return nil
	}
	var m sourceTypeFields
	if err := unmarshal(&m); err != nil {
		return err
	}
	*t = SourceType(m)
	return nil
}

func parseTypeShorthand(s string) SourceType {
	s = strings.TrimSpace(s)
	var t SourceType
	if strings.HasSuffix(s, "*") {
		t.Pointer = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "*"))
	}
	if s == "gpointer" {
		t.Pointer = true
	}
	if tag, ok := ParseTag(s); ok && tag != TagArray && tag != TagInterface {
		t.Tag = tag.String()
		return t
	}
	t.Tag = TagInterface.String()
	t.Interface = s
	return t
}

// ParseSource decodes a YAML typelib source. Unknown keys are rejected.
func ParseSource(data []byte) (*Source, error) {
	var src Source
	if err := yaml.UnmarshalWithOptions(data, &src, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.ParseFailed("typelib source", err)
	}
	return &src, nil
}

// CompileSource parses and compiles a YAML typelib source.
func CompileSource(data []byte) (*Typelib, error) {
	src, err := ParseSource(data)
	if err != nil {
		return nil, err
	}
	return Compile(src)
}

// Compile builds a typelib from a parsed source.
func Compile(src *Source) (*Typelib, error) {
	if src.Namespace == "" {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "source has no namespace")
	}
	c := &compiler{
		b: NewBuilder(Header{
			Namespace:       src.Namespace,
			Version:         src.Version,
			CPrefix:         src.CPrefix,
			SharedLibraries: src.SharedLibraries,
			Dependencies:    src.Dependencies,
		}),
		ns:      src.Namespace,
		pending: make(map[int]*SourceInfo),
	}
	for i := range src.Infos {
		if _, err := c.info(None, &src.Infos[i], KindInvalid); err != nil {
			return nil, err
		}
	}
	return c.b.Build()
}

type compiler struct {
	b       *Builder
	pending map[int]*SourceInfo
	ns      string
}

func (c *compiler) fail(path []string, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Path(append([]string{c.ns}, path...)...).
		Detail(format, args...).
		Build()
}

// info adds si and its children under parent. defaultKind applies when
// the child list implies the kind.
func (c *compiler) info(parent int, si *SourceInfo, defaultKind InfoKind) (int, error) {
	kindName := si.Kind
	if kindName == "" {
		kindName = defaultKind.String()
	}
	kind, ok := ParseKind(kindName)
	if !ok || kind == KindInvalid || kind == KindUnresolved {
		return None, c.fail([]string{si.Name}, "unknown kind %q", si.Kind)
	}
	if si.Name == "" {
		return None, c.fail(nil, "%s without a name", kind)
	}
	path := []string{si.Name}

	e := NewEntry(kind, si.Name)
	e.Deprecated = si.Deprecated
	e.Attributes = sortedAttributes(si.Attributes)
	e.TypeName = si.TypeName
	e.TypeInit = si.TypeInit

	var idx int
	if parent == None {
		idx = c.b.AddTop(e)
	} else {
		e.Container = parent
		idx = c.b.Add(e)
	}
	c.pending[idx] = si

	var err error
	switch kind {
	case KindFunction, KindCallback, KindSignal, KindVFunc:
		err = c.callable(idx, si, path)
	case KindStruct, KindBoxed, KindUnion:
		err = c.compound(idx, si, path)
	case KindEnum, KindFlags:
		err = c.enum(idx, si, path)
	case KindObject, KindInterface:
		err = c.object(idx, si, path)
	case KindConstant:
		err = c.constant(idx, si, path)
	default:
		err = c.fail(path, "%s entries cannot be declared directly", kind)
	}
	if err != nil {
		return None, err
	}
	return idx, nil
}

func (c *compiler) callable(idx int, si *SourceInfo, path []string) error {
	kind := c.b.Entry(idx).Kind
	flags, err := c.callableFlags(kind, si.Flags, path)
	if err != nil {
		return err
	}
	retTransfer, err := parseTransfer(si.ReturnTransfer)
	if err != nil {
		return c.fail(path, "%v", err)
	}
	instTransfer, err := parseTransfer(si.InstanceTransfer)
	if err != nil {
		return c.fail(path, "%v", err)
	}

	ret := None
	if si.Return != nil {
		if ret, err = c.typ(idx, si.Return, append(path, "return")); err != nil {
			return err
		}
	}

	var args []int
	for i := range si.Args {
		a, err := c.arg(idx, &si.Args[i], append(path, si.Args[i].Name))
		if err != nil {
			return err
		}
		args = append(args, a)
	}

	e := c.b.Entry(idx)
	e.Flags = flags
	e.Symbol = si.Symbol
	e.Return = ret
	e.ReturnTransfer = retTransfer
	e.InstanceTransfer = instTransfer
	e.MayReturnNull = si.MayReturnNull
	e.SkipReturn = si.SkipReturn
	e.Args = args
	e.Offset = si.Offset
	e.TrueStopsEmit = si.TrueStopsEmit
	if kind == KindFunction && e.Symbol == "" {
		return c.fail(path, "function without a symbol")
	}
	return nil
}

func (c *compiler) callableFlags(kind InfoKind, names []string, path []string) (uint32, error) {
	var flags uint32
	for _, n := range names {
		var bit uint32
		switch kind {
		case KindFunction, KindCallback:
			switch n {
			case "method":
				bit = uint32(FunctionIsMethod)
			case "constructor":
				bit = uint32(FunctionIsConstructor)
			case "getter":
				bit = uint32(FunctionIsGetter)
			case "setter":
				bit = uint32(FunctionIsSetter)
			case "wraps-vfunc":
				bit = uint32(FunctionWrapsVFunc)
			case "throws":
				bit = uint32(FunctionThrows)
			}
		case KindVFunc:
			switch n {
			case "must-chain-up":
				bit = uint32(VFuncMustChainUp)
			case "must-override":
				bit = uint32(VFuncMustOverride)
			case "must-not-override":
				bit = uint32(VFuncMustNotOverride)
			case "throws":
				bit = uint32(VFuncThrows)
			}
		case KindSignal:
			for i, s := range signalFlagNames {
				if s == n {
					bit = 1 << i
				}
			}
		}
		if bit == 0 {
			return 0, c.fail(path, "unknown %s flag %q", kind, n)
		}
		flags |= bit
	}
	return flags, nil
}

func (c *compiler) arg(parent int, sa *SourceArg, path []string) (int, error) {
	dir, err := parseDirection(sa.Direction)
	if err != nil {
		return None, c.fail(path, "%v", err)
	}
	transfer, err := parseTransfer(sa.Transfer)
	if err != nil {
		return None, c.fail(path, "%v", err)
	}
	scope, err := parseScope(sa.Scope)
	if err != nil {
		return None, c.fail(path, "%v", err)
	}

	e := NewEntry(KindArg, sa.Name)
	e.Container = parent
	e.Direction = dir
	e.Transfer = transfer
	e.Scope = scope
	e.Nullable = sa.Nullable
	e.CallerAllocates = sa.CallerAllocates
	e.Optional = sa.Optional
	e.Skip = sa.Skip
	if sa.Closure != nil {
		e.Closure = *sa.Closure
	}
	if sa.Destroy != nil {
		e.Destroy = *sa.Destroy
	}
	idx := c.b.Add(e)

	typ, err := c.typ(idx, &sa.Type, path)
	if err != nil {
		return None, err
	}
	c.b.Entry(idx).Type = typ
	return idx, nil
}

func (c *compiler) typ(parent int, st *SourceType, path []string) (int, error) {
	tagName := st.Tag
	if tagName == "" {
		switch {
		case st.Interface != "":
			tagName = TagInterface.String()
		case st.Element != nil:
			tagName = TagArray.String()
		default:
			return None, c.fail(path, "type without a tag")
		}
	}
	tag, ok := ParseTag(tagName)
	if !ok {
		return None, c.fail(path, "unknown type tag %q", st.Tag)
	}

	e := NewEntry(KindType, "")
	e.Container = parent
	e.Tag = tag
	e.Pointer = st.Pointer
	switch tag {
	case TagUTF8, TagFilename, TagGList, TagGSList, TagGHash, TagError:
		e.Pointer = true
	case TagArray:
		// Only fixed-size C arrays are stored inline.
		if st.FixedSize == nil || (st.ArrayType != "" && st.ArrayType != "c") {
			e.Pointer = true
		}
	}

	if tag == TagInterface {
		if st.Interface == "" {
			return None, c.fail(path, "interface type without a name")
		}
		e.Interface = ParseRef(st.Interface)
		if e.Interface.Namespace == "" {
			e.Interface.Namespace = c.ns
		}
	}
	if tag == TagArray {
		at, err := parseArrayType(st.ArrayType)
		if err != nil {
			return None, c.fail(path, "%v", err)
		}
		e.ArrayType = at
		e.ZeroTerminated = st.ZeroTerminated
		if st.Length != nil {
			e.ArrayLength = *st.Length
		}
		if st.FixedSize != nil {
			e.ArrayFixedSize = *st.FixedSize
		}
	}
	idx := c.b.Add(e)

	var params []int
	switch tag {
	case TagArray, TagGList, TagGSList:
		if st.Element == nil {
			return None, c.fail(path, "%s without an element type", tag)
		}
		p, err := c.typ(idx, st.Element, append(path, "element"))
		if err != nil {
			return None, err
		}
		params = append(params, p)
	case TagGHash:
		if st.Key == nil || st.Value == nil {
			return None, c.fail(path, "GHash needs key and value types")
		}
		k, err := c.typ(idx, st.Key, append(path, "key"))
		if err != nil {
			return None, err
		}
		v, err := c.typ(idx, st.Value, append(path, "value"))
		if err != nil {
			return None, err
		}
		params = append(params, k, v)
	}
	c.b.Entry(idx).Params = params
	return idx, nil
}

func (c *compiler) compound(idx int, si *SourceInfo, path []string) error {
	kind := c.b.Entry(idx).Kind
	var fields []int
	for i := range si.Fields {
		f, err := c.field(idx, &si.Fields[i], append(path, si.Fields[i].Name))
		if err != nil {
			return err
		}
		fields = append(fields, f)
	}
	methods, err := c.children(idx, si.Methods, KindFunction)
	if err != nil {
		return err
	}

	discType := None
	var discs []int
	if si.Discriminator != nil {
		if kind != KindUnion {
			return c.fail(path, "only unions can be discriminated")
		}
		d := si.Discriminator
		if len(d.Values) != len(fields) {
			return c.fail(path, "discriminator has %d values for %d fields", len(d.Values), len(fields))
		}
		if discType, err = c.typ(idx, &d.Type, append(path, "discriminator")); err != nil {
			return err
		}
		tag := c.b.Entry(discType).Tag
		for i, v := range d.Values {
			ce := NewEntry(KindConstant, si.Fields[i].Name)
			ce.Container = idx
			ce.Value = uint64(v)
			ci := c.b.Add(ce)
			t := NewEntry(KindType, "")
			t.Container = ci
			t.Tag = tag
			c.b.Entry(ci).Type = c.b.Add(t)
			discs = append(discs, ci)
		}
	}

	e := c.b.Entry(idx)
	e.Size = si.Size
	e.Alignment = si.Alignment
	e.GTypeStruct = si.GTypeStruct
	e.Foreign = si.Foreign
	e.Fields = fields
	e.Methods = methods
	if si.Discriminator != nil {
		e.Discriminated = true
		e.DiscriminatorOffset = si.Discriminator.Offset
		e.DiscriminatorType = discType
		e.Discriminators = discs
	}
	return c.link(idx, path)
}

func (c *compiler) field(parent int, sf *SourceField, path []string) (int, error) {
	e := NewEntry(KindField, sf.Name)
	e.Container = parent
	e.Offset = sf.Offset
	e.Size = sf.Bits
	var flags FieldFlags
	if sf.Readable == nil || *sf.Readable {
		flags |= FieldReadable
	}
	if sf.Writable {
		flags |= FieldWritable
	}
	e.Flags = uint32(flags)
	idx := c.b.Add(e)

	typ, err := c.typ(idx, &sf.Type, path)
	if err != nil {
		return None, err
	}
	c.b.Entry(idx).Type = typ
	return idx, nil
}

func (c *compiler) enum(idx int, si *SourceInfo, path []string) error {
	storage := TagUInt32
	if si.StorageType != "" {
		t, ok := ParseTag(si.StorageType)
		if !ok || !t.IsNumeric() || t == TagFloat || t == TagDouble {
			return c.fail(path, "invalid storage type %q", si.StorageType)
		}
		storage = t
	} else {
		for _, v := range si.Values {
			if v.Value < 0 {
				storage = TagInt32
				break
			}
		}
	}

	var values []int
	for _, sv := range si.Values {
		v := NewEntry(KindValue, sv.Name)
		v.Container = idx
		v.Value = uint64(sv.Value)
		values = append(values, c.b.Add(v))
	}
	methods, err := c.children(idx, si.Methods, KindFunction)
	if err != nil {
		return err
	}

	e := c.b.Entry(idx)
	e.Values = values
	e.Methods = methods
	e.StorageType = storage
	e.ErrorDomain = si.ErrorDomain
	return nil
}

func (c *compiler) object(idx int, si *SourceInfo, path []string) error {
	kind := c.b.Entry(idx).Kind
	if kind == KindInterface && si.Parent != "" {
		return c.fail(path, "interfaces have no parent")
	}

	var fields []int
	for i := range si.Fields {
		f, err := c.field(idx, &si.Fields[i], append(path, si.Fields[i].Name))
		if err != nil {
			return err
		}
		fields = append(fields, f)
	}
	var props []int
	for i := range si.Properties {
		p, err := c.property(idx, &si.Properties[i], append(path, si.Properties[i].Name))
		if err != nil {
			return err
		}
		props = append(props, p)
	}
	methods, err := c.children(idx, si.Methods, KindFunction)
	if err != nil {
		return err
	}
	signals, err := c.children(idx, si.Signals, KindSignal)
	if err != nil {
		return err
	}
	vfuncs, err := c.children(idx, si.VFuncs, KindVFunc)
	if err != nil {
		return err
	}
	consts, err := c.children(idx, si.Constants, KindConstant)
	if err != nil {
		return err
	}

	e := c.b.Entry(idx)
	e.Abstract = si.Abstract
	e.Fundamental = si.Fundamental
	e.Final = si.Final
	e.Parent = c.ref(si.Parent)
	e.ClassStruct = c.ref(si.ClassStruct)
	e.Interfaces = c.refs(si.Interfaces)
	e.Prerequisites = c.refs(si.Prerequisites)
	e.Fields = fields
	e.Properties = props
	e.Methods = methods
	e.Signals = signals
	e.VFuncs = vfuncs
	e.Constants = consts
	e.RefFunction = si.RefFunction
	e.UnrefFunction = si.UnrefFunction
	e.SetValueFunction = si.SetValueFunction
	e.GetValueFunction = si.GetValueFunction
	return c.link(idx, path)
}

func (c *compiler) property(parent int, sp *SourceProperty, path []string) (int, error) {
	var flags ParamFlags
	for _, n := range sp.Flags {
		bit, ok := paramFlagNames[n]
		if !ok {
			return None, c.fail(path, "unknown property flag %q", n)
		}
		flags |= bit
	}
	transfer, err := parseTransfer(sp.Transfer)
	if err != nil {
		return None, c.fail(path, "%v", err)
	}

	e := NewEntry(KindProperty, sp.Name)
	e.Container = parent
	e.Flags = uint32(flags)
	e.Transfer = transfer
	e.Getter = sp.Getter
	e.Setter = sp.Setter
	idx := c.b.Add(e)

	typ, err := c.typ(idx, &sp.Type, path)
	if err != nil {
		return None, err
	}
	c.b.Entry(idx).Type = typ
	return idx, nil
}

var signalFlagNames = []string{"run-first", "run-last", "run-cleanup", "no-recurse", "detailed", "action", "no-hooks", "must-collect", "deprecated"}

var paramFlagNames = map[string]ParamFlags{
	"readable":        ParamReadable,
	"writable":        ParamWritable,
	"construct":       ParamConstruct,
	"construct-only":  ParamConstructOnly,
	"lax-validation":  ParamLaxValidation,
	"static-name":     ParamStaticName,
	"static-nick":     ParamStaticNick,
	"static-blurb":    ParamStaticBlurb,
	"explicit-notify": ParamExplicitNotify,
	"deprecated":      ParamDeprecated,
}

func (c *compiler) constant(idx int, si *SourceInfo, path []string) error {
	if si.Type == nil {
		return c.fail(path, "constant without a type")
	}
	typ, err := c.typ(idx, si.Type, path)
	if err != nil {
		return err
	}
	tag := c.b.Entry(typ).Tag
	bits, str, err := constantValue(tag, si.Value)
	if err != nil {
		return c.fail(path, "%v", err)
	}
	e := c.b.Entry(idx)
	e.Type = typ
	e.Value = bits
	e.StringValue = str
	return nil
}

func constantValue(tag TypeTag, v any) (uint64, string, error) {
	switch tag {
	case TagUTF8, TagFilename:
		s, ok := v.(string)
		if !ok {
			return 0, "", fmt.Errorf("string constant has value %v", v)
		}
		return 0, s, nil
	case TagBoolean:
		b, ok := v.(bool)
		if !ok {
			return 0, "", fmt.Errorf("boolean constant has value %v", v)
		}
		if b {
			return 1, "", nil
		}
		return 0, "", nil
	case TagFloat, TagDouble:
		f, ok := toFloat(v)
		if !ok {
			return 0, "", fmt.Errorf("floating point constant has value %v", v)
		}
		if tag == TagFloat {
			return uint64(math.Float32bits(float32(f))), "", nil
		}
		return math.Float64bits(f), "", nil
	}
	if !tag.IsNumeric() {
		return 0, "", fmt.Errorf("constants of type %s are not supported", tag)
	}
	switch n := v.(type) {
	case int:
		return uint64(n), "", nil
	case int64:
		return uint64(n), "", nil
	case uint64:
		return n, "", nil
	}
	return 0, "", fmt.Errorf("integer constant has value %v", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func (c *compiler) children(parent int, infos []SourceInfo, kind InfoKind) ([]int, error) {
	if len(infos) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(infos))
	for i := range infos {
		si := &infos[i]
		if si.Kind != "" && si.Kind != kind.String() {
			return nil, c.fail([]string{c.b.Entry(parent).Name, si.Name}, "expected %s, got %s", kind, si.Kind)
		}
		idx, err := c.info(parent, si, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// link resolves name references between the children of a container.
func (c *compiler) link(idx int, path []string) error {
	parent := c.b.Entry(idx)
	find := func(list []int, name string) int {
		for _, i := range list {
			if c.b.Entry(i).Name == name {
				return i
			}
		}
		return None
	}
	methods, vfuncs, signals, props := parent.Methods, parent.VFuncs, parent.Signals, parent.Properties

	resolve := func(list []int, name, what string, from int) (int, error) {
		if name == "" {
			return None, nil
		}
		i := find(list, name)
		if i == None {
			return None, c.fail(append(path, c.b.Entry(from).Name), "unknown %s %q", what, name)
		}
		return i, nil
	}

	for _, m := range methods {
		si := c.pending[m]
		if si == nil {
			continue
		}
		p, err := resolve(props, si.Property, "property", m)
		if err != nil {
			return err
		}
		v, err := resolve(vfuncs, si.VFunc, "vfunc", m)
		if err != nil {
			return err
		}
		c.b.Entry(m).Property = p
		c.b.Entry(m).VFunc = v
	}
	for _, vf := range vfuncs {
		si := c.pending[vf]
		if si == nil {
			continue
		}
		inv, err := resolve(methods, si.Invoker, "invoker", vf)
		if err != nil {
			return err
		}
		sig, err := resolve(signals, si.Signal, "signal", vf)
		if err != nil {
			return err
		}
		c.b.Entry(vf).Invoker = inv
		c.b.Entry(vf).Signal = sig
	}
	for _, s := range signals {
		si := c.pending[s]
		if si == nil {
			continue
		}
		cc, err := resolve(vfuncs, si.ClassClosure, "class closure", s)
		if err != nil {
			return err
		}
		c.b.Entry(s).ClassClosure = cc
	}
	return nil
}

func (c *compiler) ref(s string) Ref {
	if s == "" {
		return Ref{}
	}
	r := ParseRef(s)
	if r.Namespace == "" {
		r.Namespace = c.ns
	}
	return r
}

func (c *compiler) refs(list []string) []Ref {
	if len(list) == 0 {
		return nil
	}
	out := make([]Ref, len(list))
	for i, s := range list {
		out[i] = c.ref(s)
	}
	return out
}

func sortedAttributes(m map[string]string) []Attribute {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Attribute, len(keys))
	for i, k := range keys {
		out[i] = Attribute{Name: k, Value: m[k]}
	}
	return out
}

func parseDirection(s string) (Direction, error) {
	switch s {
	case "", "in":
		return DirectionIn, nil
	case "out":
		return DirectionOut, nil
	case "inout":
		return DirectionInOut, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func parseTransfer(s string) (Transfer, error) {
	switch s {
	case "", "none":
		return TransferNothing, nil
	case "container":
		return TransferContainer, nil
	case "full":
		return TransferEverything, nil
	}
	return 0, fmt.Errorf("unknown transfer %q", s)
}

func parseScope(s string) (ScopeType, error) {
	switch s {
	case "":
		return ScopeInvalid, nil
	case "call":
		return ScopeCall, nil
	case "async":
		return ScopeAsync, nil
	case "notified":
		return ScopeNotified, nil
	case "forever":
		return ScopeForever, nil
	}
	return 0, fmt.Errorf("unknown scope %q", s)
}

func parseArrayType(s string) (ArrayType, error) {
	switch s {
	case "", "c":
		return ArrayC, nil
	case "GArray":
		return ArrayArray, nil
	case "GPtrArray":
		return ArrayPtrArray, nil
	case "GByteArray":
		return ArrayByteArray, nil
	}
	return 0, fmt.Errorf("unknown array type %q", s)
}
