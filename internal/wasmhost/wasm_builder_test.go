package wasmhost_test

import (
	"bytes"
)

// Minimal WebAssembly binary encoder for test modules.

const (
	valI32 byte = 0x7f

	opEnd      byte = 0x0b
	opCall     byte = 0x10
	opI32Const byte = 0x41
)

func uleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			return out
		}
	}
}

func wasmName(s string) []byte {
	return append(uleb(len(s)), s...)
}

func wasmVec(items [][]byte) []byte {
	return append(uleb(len(items)), bytes.Join(items, nil)...)
}

func wasmSection(id byte, payload []byte) []byte {
	out := append([]byte{id}, uleb(len(payload))...)
	return append(out, payload...)
}

type wasmImport struct {
	module, name string
	typeIdx      int
}

type wasmFunc struct {
	export  string
	typeIdx int
	code    []byte
}

type wasmModule struct {
	types    [][]byte
	imports  []wasmImport
	funcs    []wasmFunc
	memory   bool
	data     []byte
	custom   map[string][]byte
	nameSect string
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(len(params))...)
	out = append(out, params...)
	out = append(out, uleb(len(results))...)
	return append(out, results...)
}

// noop returns the body of a function doing nothing.
func noop() []byte {
	return []byte{opEnd}
}

func (w wasmModule) encode() []byte {
	out := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

	if len(w.types) > 0 {
		out = append(out, wasmSection(1, wasmVec(w.types))...)
	}

	if len(w.imports) > 0 {
		items := make([][]byte, 0, len(w.imports))
		for _, imp := range w.imports {
			item := append(wasmName(imp.module), wasmName(imp.name)...)
			item = append(item, 0x00)
			item = append(item, uleb(imp.typeIdx)...)
			items = append(items, item)
		}
		out = append(out, wasmSection(2, wasmVec(items))...)
	}

	if len(w.funcs) > 0 {
		items := make([][]byte, 0, len(w.funcs))
		for _, fn := range w.funcs {
			items = append(items, uleb(fn.typeIdx))
		}
		out = append(out, wasmSection(3, wasmVec(items))...)
	}

	if w.memory {
		out = append(out, wasmSection(5, wasmVec([][]byte{{0x00, 0x01}}))...)
	}

	var exports [][]byte
	for i, fn := range w.funcs {
		if fn.export == "" {
			continue
		}
		item := append(wasmName(fn.export), 0x00)
		item = append(item, uleb(len(w.imports)+i)...)
		exports = append(exports, item)
	}
	if len(exports) > 0 {
		out = append(out, wasmSection(7, wasmVec(exports))...)
	}

	if len(w.funcs) > 0 {
		bodies := make([][]byte, 0, len(w.funcs))
		for _, fn := range w.funcs {
			body := append([]byte{0x00}, fn.code...) // no locals
			bodies = append(bodies, append(uleb(len(body)), body...))
		}
		out = append(out, wasmSection(10, wasmVec(bodies))...)
	}

	if len(w.data) > 0 {
		segment := []byte{0x00, opI32Const, 0x00, opEnd}
		segment = append(segment, uleb(len(w.data))...)
		segment = append(segment, w.data...)
		out = append(out, wasmSection(11, wasmVec([][]byte{segment}))...)
	}

	for name, payload := range w.custom {
		out = append(out, wasmSection(0, append(wasmName(name), payload...))...)
	}

	if w.nameSect != "" {
		// name section, subsection 0 holds the module name.
		sub := wasmName(w.nameSect)
		payload := append(wasmName("name"), 0x00)
		payload = append(payload, uleb(len(sub))...)
		payload = append(payload, sub...)
		out = append(out, wasmSection(0, payload)...)
	}

	return out
}

// pluginModule builds a module with a manifest and no-op exports.
func pluginModule(manifest string, exports ...string) []byte {
	w := wasmModule{types: [][]byte{funcType(nil, nil)}}
	for _, name := range exports {
		w.funcs = append(w.funcs, wasmFunc{export: name, code: noop()})
	}
	if manifest != "" {
		w.custom = map[string][]byte{"editor.manifest": []byte(manifest)}
	}
	return w.encode()
}

// importerModule builds a module whose plugin_init calls fn imported from module.
func importerModule(manifest, module, fn string) []byte {
	w := wasmModule{
		types:   [][]byte{funcType(nil, nil)},
		imports: []wasmImport{{module: module, name: fn}},
		funcs: []wasmFunc{
			{export: "plugin_init", code: []byte{opCall, 0x00, opEnd}},
		},
	}
	if manifest != "" {
		w.custom = map[string][]byte{"editor.manifest": []byte(manifest)}
	}
	return w.encode()
}

// loggingModule builds a module whose plugin_init passes msg to env.log_info.
func loggingModule(manifest, msg string) []byte {
	code := []byte{opI32Const, 0x00, opI32Const}
	code = append(code, byte(len(msg))) // sleb128, msg shorter than 64 bytes
	code = append(code, opCall, 0x00, opEnd)

	return wasmModule{
		types:   [][]byte{funcType(nil, nil), funcType([]byte{valI32, valI32}, nil)},
		imports: []wasmImport{{module: "env", name: "log_info", typeIdx: 1}},
		funcs:   []wasmFunc{{export: "plugin_init", code: code}},
		memory:  true,
		data:    []byte(msg),
		custom:  map[string][]byte{"editor.manifest": []byte(manifest)},
	}.encode()
}
