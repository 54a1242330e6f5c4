package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/typelib"
)

var (
	kindColor    = color.New(color.FgCyan)
	nameColor    = color.New(color.FgGreen, color.Bold)
	typeColor    = color.New(color.FgBlue)
	dimColor     = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
	headingColor = color.New(color.FgCyan, color.Bold)
)

// typeString renders t the way it is written in sources.
func typeString(t *gi.TypeInfo) string {
	if t == nil {
		return "void"
	}
	var s string
	switch t.Tag() {
	case typelib.TagInterface:
		s = t.InterfaceName()
	case typelib.TagArray, typelib.TagGList, typelib.TagGSList, typelib.TagGHash:
		var params []string
		for _, p := range t.Params().All() {
			params = append(params, typeString(p))
		}
		s = t.Tag().String() + "<" + strings.Join(params, ", ") + ">"
		switch {
		case t.ArrayFixedSize() >= 0:
			s += "[" + strconv.Itoa(t.ArrayFixedSize()) + "]"
		case t.ArrayLength() >= 0:
			s += "[arg" + strconv.Itoa(t.ArrayLength()) + "]"
		case t.IsZeroTerminated():
			s += "[0]"
		}
	default:
		s = t.Tag().String()
	}
	if t.IsPointer() && t.Tag() != typelib.TagUTF8 && t.Tag() != typelib.TagFilename {
		s += "*"
	}
	return s
}

// signature renders a callable as name(args) -> return.
func signature(c gi.Callable) string {
	var params []string
	if c.IsMethod() {
		params = append(params, "self")
	}
	for _, a := range c.Args().All() {
		p := a.Name() + ": "
		if a.Direction() != typelib.DirectionIn {
			p += a.Direction().String() + " "
		}
		p += typeString(a.Type())
		if a.MayBeNull() {
			p += "?"
		}
		params = append(params, p)
	}
	s := c.Name() + "(" + strings.Join(params, ", ") + ")"
	if rt := c.ReturnType(); rt != nil && !(rt.Tag() == typelib.TagVoid && !rt.IsPointer()) {
		s += " -> " + typeString(rt)
	}
	if c.CanThrow() {
		s += " throws"
	}
	return s
}

// summary is the one-line description used by list and browse.
func summary(info gi.Info) string {
	switch v := info.(type) {
	case *gi.FunctionInfo:
		return signature(v)
	case *gi.CallbackInfo:
		return signature(v)
	case *gi.ConstantInfo:
		if s, ok := v.StringValue(); ok {
			return fmt.Sprintf("%s = %q", v.Name(), s)
		}
		return fmt.Sprintf("%s: %s = %s", v.Name(), typeString(v.Type()), v.Value())
	case gi.Registered:
		if tn := v.TypeName(); tn != "" {
			return v.Name() + " (" + tn + ")"
		}
	}
	return info.Name()
}

// describe prints info and its members.
func describe(w io.Writer, info gi.Info) {
	kindColor.Fprintf(w, "%s ", info.Kind())
	nameColor.Fprintln(w, info.String())
	if info.IsDeprecated() {
		warnColor.Fprintln(w, "  deprecated")
	}
	for k, v := range info.Attributes() {
		dimColor.Fprintf(w, "  [%s=%s]\n", k, v)
	}

	if r, ok := info.(gi.Registered); ok {
		field(w, "type name", r.TypeName())
		field(w, "type init", r.TypeInit())
	}

	switch v := info.(type) {
	case gi.Callable:
		field(w, "signature", signature(v))
		if fn, ok := v.(*gi.FunctionInfo); ok {
			field(w, "symbol", fn.Symbol())
		}
		if vf, ok := v.(*gi.VFuncInfo); ok {
			field(w, "offset", strconv.FormatUint(uint64(vf.Offset()), 10))
		}
	case *gi.StructInfo:
		field(w, "size", fmt.Sprintf("%d (align %d)", v.Size(), v.Alignment()))
		fields(w, v.Fields())
		callables(w, "methods", v.Methods())
	case *gi.UnionInfo:
		field(w, "size", fmt.Sprintf("%d (align %d)", v.Size(), v.Alignment()))
		fields(w, v.Fields())
		callables(w, "methods", v.Methods())
	case *gi.EnumInfo:
		field(w, "storage", v.StorageType().String())
		field(w, "error domain", v.ErrorDomain())
		if v.Values().Len() > 0 {
			headingColor.Fprintln(w, "  values")
			for _, val := range v.Values().All() {
				fmt.Fprintf(w, "    %-24s %d\n", val.Name(), val.Value())
			}
		}
		callables(w, "methods", v.Methods())
	case *gi.ObjectInfo:
		if p := v.Parent(); p != nil {
			field(w, "parent", p.String())
		}
		if cs, ok := v.ClassStruct(); ok {
			field(w, "class struct", cs.String())
		}
		infos(w, "interfaces", v.Interfaces())
		fields(w, v.Fields())
		callables(w, "methods", v.Methods())
		callables(w, "vfuncs", v.VFuncs())
		callables(w, "signals", v.Signals())
		properties(w, v.Properties())
	case *gi.InterfaceInfo:
		if is, ok := v.IfaceStruct(); ok {
			field(w, "iface struct", is.String())
		}
		infos(w, "prerequisites", v.Prerequisites())
		callables(w, "methods", v.Methods())
		callables(w, "vfuncs", v.VFuncs())
		callables(w, "signals", v.Signals())
		properties(w, v.Properties())
	case *gi.ConstantInfo:
		field(w, "value", summary(v))
	case *gi.FieldInfo:
		field(w, "type", typeString(v.Type()))
		field(w, "offset", strconv.FormatUint(uint64(v.Offset()), 10))
		field(w, "flags", v.Flags().String())
	case *gi.ValueInfo:
		field(w, "value", strconv.FormatInt(v.Value(), 10))
	}
}

func field(w io.Writer, name, value string) {
	if value == "" {
		return
	}
	dimColor.Fprintf(w, "  %-14s", name)
	fmt.Fprintln(w, value)
}

func fields(w io.Writer, c gi.Collection[*gi.FieldInfo]) {
	if c.Len() == 0 {
		return
	}
	headingColor.Fprintln(w, "  fields")
	for _, f := range c.All() {
		fmt.Fprintf(w, "    @%-4d %-20s ", f.Offset(), f.Name())
		typeColor.Fprintln(w, typeString(f.Type()))
	}
}

func callables[T gi.Callable](w io.Writer, heading string, c gi.Collection[T]) {
	if c.Len() == 0 {
		return
	}
	headingColor.Fprintln(w, "  "+heading)
	for _, m := range c.All() {
		fmt.Fprintln(w, "    "+signature(m))
	}
}

func properties(w io.Writer, c gi.Collection[*gi.PropertyInfo]) {
	if c.Len() == 0 {
		return
	}
	headingColor.Fprintln(w, "  properties")
	for _, p := range c.All() {
		fmt.Fprintf(w, "    %-20s ", p.Name())
		typeColor.Fprintln(w, typeString(p.Type()))
	}
}

func infos(w io.Writer, heading string, c gi.Collection[gi.Info]) {
	if c.Len() == 0 {
		return
	}
	names := make([]string, 0, c.Len())
	for _, i := range c.All() {
		names = append(names, i.String())
	}
	field(w, heading, strings.Join(names, ", "))
}
