package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"

	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/invoke"
	"github.com/wippyai/girepository/memory"
	"github.com/wippyai/girepository/typelib"
)

func newCallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "call NAMESPACE.FUNCTION [ARG...]",
		Short: "Invoke a function against a WebAssembly library",
		Long: `call resolves the function's symbol in the module given by --wasm and
invokes it. Arguments are the in and inout values in declared order,
preceded by the instance address for methods. Strings are copied into
the module's memory; pointers are written as addresses or "null".`,
		Example: `  gir call Calc.add 2 3 --wasm calc.wasm
  gir call Calc.Counter.get 1024 --wasm calc.wasm`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			info, err := s.lookup(ctx, args[0])
			if err != nil {
				return err
			}
			fn, ok := info.(*gi.FunctionInfo)
			if !ok {
				return fmt.Errorf("%s is a %s, not a function", info, info.Kind())
			}
			c, err := openCaller(ctx, s)
			if err != nil {
				return err
			}
			defer c.close(ctx)

			res, err := c.call(ctx, fn, args[1:])
			if err != nil {
				return err
			}
			res.print(cmd.OutOrStdout())
			return nil
		},
	}
}

// caller invokes functions against the configured wasm library.
type caller struct {
	rt     wazero.Runtime
	lib    *invoke.WasmLibrary
	engine *invoke.Engine
}

func openCaller(ctx context.Context, s *session) (*caller, error) {
	if s.cfg.Wasm == "" {
		return nil, fmt.Errorf("no library given; pass --wasm or set GIR_WASM")
	}
	data, err := os.ReadFile(s.cfg.Wasm)
	if err != nil {
		return nil, err
	}
	rt := wazero.NewRuntime(ctx)
	lib, err := invoke.LoadWasm(ctx, rt, filepath.Base(s.cfg.Wasm), data)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	engine := invoke.NewEngine(s.repo, invoke.WithLibrary(lib), invoke.WithLogger(s.log.Named("invoke")))
	s.repo.SetTypeInitializer(engine.TypeInitializer())
	return &caller{rt: rt, lib: lib, engine: engine}, nil
}

func (c *caller) close(ctx context.Context) {
	_ = c.rt.Close(ctx)
}

// callResult is a completed call rendered for display.
type callResult struct {
	ret    string
	outs   []string
	hasRet bool
}

func (r callResult) print(w io.Writer) {
	if r.hasRet {
		nameColor.Fprint(w, "=> ")
		fmt.Fprintln(w, r.ret)
	}
	for _, o := range r.outs {
		fmt.Fprintln(w, "   "+o)
	}
	if !r.hasRet && len(r.outs) == 0 {
		dimColor.Fprintln(w, "(void)")
	}
}

func (r callResult) String() string {
	var b strings.Builder
	if r.hasRet {
		b.WriteString(r.ret)
	}
	for _, o := range r.outs {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(o)
	}
	if b.Len() == 0 {
		return "(void)"
	}
	return b.String()
}

func (c *caller) call(ctx context.Context, fn *gi.FunctionInfo, raw []string) (callResult, error) {
	mem, alloc := c.lib.Memory(), c.lib.Allocator()
	var in, out []gi.Argument
	var owned [][2]uint32
	defer func() {
		for _, b := range owned {
			alloc.Free(b[0], b[1], 1)
		}
	}()

	next := func(what string) (string, error) {
		if len(raw) == 0 {
			return "", fmt.Errorf("missing value for %s", what)
		}
		s := raw[0]
		raw = raw[1:]
		return s, nil
	}

	if fn.IsMethod() {
		s, err := next("self")
		if err != nil {
			return callResult{}, err
		}
		addr, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return callResult{}, fmt.Errorf("self: %w", err)
		}
		in = append(in, gi.NewPointer(uint32(addr)))
	}
	for _, arg := range fn.Args().All() {
		if arg.Direction() != typelib.DirectionIn {
			out = append(out, gi.Argument{})
		}
		if arg.Direction() == typelib.DirectionOut {
			if arg.IsCallerAllocates() {
				return callResult{}, fmt.Errorf("%s: caller-allocated out arguments are not supported", arg.Name())
			}
			continue
		}
		s, err := next(arg.Name())
		if err != nil {
			return callResult{}, err
		}
		v, err := lowerString(mem, alloc, arg.Type(), s)
		if err != nil {
			return callResult{}, fmt.Errorf("%s: %w", arg.Name(), err)
		}
		if isString(arg.Type()) && !v.IsNull() {
			owned = append(owned, [2]uint32{v.Pointer(), uint32(len(s)) + 1})
		}
		in = append(in, v)
	}
	if len(raw) > 0 {
		return callResult{}, fmt.Errorf("%d unexpected arguments: %s", len(raw), strings.Join(raw, " "))
	}

	ret, err := c.engine.Invoke(ctx, fn, in, out)
	if err != nil {
		return callResult{}, err
	}

	declared := invoke.Declared(fn, in, out)
	var res callResult
	if rt := fn.ReturnType(); rt != nil && !(rt.Tag() == typelib.TagVoid && !rt.IsPointer()) {
		res.hasRet = true
		res.ret = formatValue(mem, rt, ret, declared)
	}
	i := 0
	for _, arg := range fn.Args().All() {
		if arg.Direction() != typelib.DirectionIn {
			res.outs = append(res.outs, arg.Name()+" = "+formatValue(mem, arg.Type(), out[i], declared))
			i++
		}
	}
	return res, nil
}

func isString(t *gi.TypeInfo) bool {
	return t != nil && (t.Tag() == typelib.TagUTF8 || t.Tag() == typelib.TagFilename)
}

// lowerString parses s as a value of t, copying strings into mem.
func lowerString(mem girepository.Memory, alloc girepository.Allocator, t *gi.TypeInfo, s string) (gi.Argument, error) {
	if !isString(t) || s == "null" {
		return parseValue(t, s)
	}
	if mem == nil || alloc == nil {
		return gi.Argument{}, fmt.Errorf("library exports no allocator for string arguments")
	}
	ptr, err := memory.WriteCString(mem, alloc, s)
	if err != nil {
		return gi.Argument{}, err
	}
	return gi.NewString(ptr), nil
}

// parseValue parses s as a value of t. Pointers are addresses or "null";
// enums also accept value names.
func parseValue(t *gi.TypeInfo, s string) (gi.Argument, error) {
	if t == nil {
		return gi.Argument{}, fmt.Errorf("argument has no type")
	}
	if t.IsPointer() {
		if s == "null" {
			return gi.NewPointer(0), nil
		}
		addr, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return gi.Argument{}, err
		}
		return gi.NewPointer(uint32(addr)), nil
	}

	if en, ok := t.Interface().(*gi.EnumInfo); ok {
		for _, v := range en.Values().All() {
			if v.Name() == s {
				s = strconv.FormatInt(v.Value(), 10)
				break
			}
		}
	}

	tag := t.StorageTag()
	switch tag {
	case typelib.TagBoolean:
		b, err := strconv.ParseBool(s)
		return gi.NewBoolean(b), err
	case typelib.TagInt8, typelib.TagInt16, typelib.TagInt32, typelib.TagInt64:
		n, err := strconv.ParseInt(s, 0, int(gi.TagSize(tag, false))*8)
		if err != nil {
			return gi.Argument{}, err
		}
		switch tag {
		case typelib.TagInt8:
			return gi.NewInt8(int8(n)), nil
		case typelib.TagInt16:
			return gi.NewInt16(int16(n)), nil
		case typelib.TagInt32:
			return gi.NewInt32(int32(n)), nil
		}
		return gi.NewInt64(n), nil
	case typelib.TagUInt8, typelib.TagUInt16, typelib.TagUInt32, typelib.TagUInt64, typelib.TagGType:
		n, err := strconv.ParseUint(s, 0, int(gi.TagSize(tag, false))*8)
		if err != nil {
			return gi.Argument{}, err
		}
		return gi.ArgumentFromBits(tag, false, n), nil
	case typelib.TagFloat:
		f, err := strconv.ParseFloat(s, 32)
		return gi.NewFloat(float32(f)), err
	case typelib.TagDouble:
		f, err := strconv.ParseFloat(s, 64)
		return gi.NewDouble(f), err
	case typelib.TagUniChar:
		if r, size := utf8.DecodeRuneInString(s); size == len(s) && r != utf8.RuneError {
			return gi.NewUniChar(r), nil
		}
		return gi.Argument{}, fmt.Errorf("%q is not a single character", s)
	}
	return gi.Argument{}, fmt.Errorf("cannot pass %s from the command line", typeString(t))
}

// formatValue renders v of type t, reading strings and arrays from mem.
func formatValue(mem girepository.Memory, t *gi.TypeInfo, v gi.Argument, declared []gi.Argument) string {
	if t == nil {
		return v.String()
	}
	if v.IsPointer() && v.IsNull() {
		return "null"
	}
	switch {
	case isString(t) && v.IsPointer():
		s, err := memory.ReadCString(mem, v.Pointer())
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return strconv.Quote(s)
	case t.Tag() == typelib.TagArray && t.ArrayType() == typelib.ArrayC:
		n, err := invoke.ArrayLength(mem, t, v.Pointer(), declared)
		if err != nil {
			return fmt.Sprintf("%s <%v>", v, err)
		}
		items, err := invoke.ReadArray(mem, t, v.Pointer(), n)
		if err != nil {
			return fmt.Sprintf("%s <%v>", v, err)
		}
		elem, _ := t.ParamType(0)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = formatValue(mem, elem, it, nil)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if en, ok := t.Interface().(*gi.EnumInfo); ok && !v.IsPointer() {
		if val, ok := en.FindValue(v.Int64()); ok {
			return en.Name() + "." + val.Name()
		}
	}
	return v.String()
}
