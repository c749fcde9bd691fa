// Package serialize renders a metadata database as a JSON document.
//
// Objects are written with a streaming encoder so members appear in
// declaration order, which keeps documents stable across runs.
package serialize

import (
	"bytes"
	"io"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/phobologic/cppmeta/internal/meta"
)

// Document returns the encoded document for db. ok is false when db is
// empty; an empty database has no document.
func Document(db *meta.Database) (data []byte, ok bool, err error) {
	if db == nil || db.Empty() {
		return nil, false, nil
	}
	var buf bytes.Buffer
	if err := Encode(&buf, db); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// Encode writes db to out.
func Encode(out io.Writer, db *meta.Database) error {
	w := &writer{enc: jsontext.NewEncoder(out, jsontext.WithIndent("  "), jsontext.AllowDuplicateNames(true))}

	w.begin()

	w.name("records")
	w.begin()
	for i := range db.Records {
		w.name(db.Records[i].Name)
		w.record(&db.Records[i])
	}
	w.end()

	w.name("functions")
	w.beginArray()
	for i := range db.Functions {
		w.function(&db.Functions[i], freeFunction)
	}
	w.endArray()

	w.name("enums")
	w.begin()
	for i := range db.Enums {
		w.name(db.Enums[i].Name)
		w.enum(&db.Enums[i])
	}
	w.end()

	w.end()
	return w.err
}

type functionShape int

const (
	freeFunction functionShape = iota
	method
	constructor
)

// writer wraps the encoder and keeps the first error.
type writer struct {
	enc *jsontext.Encoder
	err error
}

func (w *writer) token(t jsontext.Token) {
	if w.err == nil {
		w.err = w.enc.WriteToken(t)
	}
}

func (w *writer) begin()      { w.token(jsontext.ObjectStart) }
func (w *writer) end()        { w.token(jsontext.ObjectEnd) }
func (w *writer) beginArray() { w.token(jsontext.ArrayStart) }
func (w *writer) endArray()   { w.token(jsontext.ArrayEnd) }
func (w *writer) name(s string) {
	w.token(jsontext.String(s))
}

func (w *writer) str(key, v string) {
	w.name(key)
	w.token(jsontext.String(v))
}

func (w *writer) boolean(key string, v bool) {
	w.name(key)
	w.token(jsontext.Bool(v))
}

func (w *writer) integer(key string, v int) {
	w.name(key)
	w.token(jsontext.Int(int64(v)))
}

func (w *writer) unsigned(key string, v uint64) {
	w.name(key)
	w.token(jsontext.Uint(v))
}

func (w *writer) list(key string, vs []string) {
	w.name(key)
	w.beginArray()
	for _, v := range vs {
		w.token(jsontext.String(v))
	}
	w.endArray()
}

func (w *writer) record(r *meta.Record) {
	w.begin()
	w.list("bases", r.Bases)
	w.list("attrs", r.Attrs)

	w.name("fields")
	w.begin()
	for i := range r.Fields {
		w.name(r.Fields[i].Name)
		w.field(&r.Fields[i], false)
	}
	w.end()

	w.name("statics")
	w.beginArray()
	for i := range r.Statics {
		w.field(&r.Statics[i], true)
	}
	w.endArray()

	w.name("methods")
	w.beginArray()
	for i := range r.Methods {
		w.function(&r.Methods[i], method)
	}
	w.endArray()

	w.name("ctors")
	w.beginArray()
	for i := range r.Ctors {
		w.function(&r.Ctors[i], constructor)
	}
	w.endArray()

	w.boolean("isNested", r.IsNested)
	w.str("comment", r.Comment)
	w.str("fileName", r.FileName)
	w.integer("line", r.Line)
	w.end()
}

// field writes the field shape. Entries of arrays carry their name inline.
func (w *writer) field(f *meta.Field, named bool) {
	w.begin()
	if named {
		w.str("name", f.Name)
	}
	w.str("type", f.Type)
	w.str("rawType", f.RawType)
	w.unsigned("arraySize", f.ArraySize)
	w.str("access", f.Access)
	w.list("attrs", f.Attrs)
	w.boolean("isFunctor", f.IsFunctor)
	w.boolean("isCallback", f.IsCallback)
	w.boolean("isAnonymous", f.IsAnonymous)
	w.boolean("isStatic", f.IsStatic)
	if f.IsCallback && f.Signature != nil {
		w.name("functor")
		w.function(f.Signature, freeFunction)
	}
	w.str("defaultValue", f.DefaultValue)
	w.str("comment", f.Comment)
	w.integer("line", f.Line)
	w.end()
}

func (w *writer) function(fn *meta.Function, shape functionShape) {
	w.begin()
	w.str("name", fn.Name)
	w.boolean("isStatic", fn.IsStatic)
	w.boolean("isConst", fn.IsConst)
	w.boolean("isNothrow", fn.IsNothrow)
	w.str("access", fn.Access)
	w.list("attrs", fn.Attrs)
	w.str("comment", fn.Comment)

	w.name("parameters")
	w.begin()
	for i := range fn.Parameters {
		w.name(fn.Parameters[i].Name)
		w.field(&fn.Parameters[i], false)
	}
	w.end()

	if shape != constructor {
		w.str("retType", fn.RetType)
		w.str("rawRetType", fn.RawRetType)
	}
	if shape == freeFunction {
		w.str("fileName", fn.FileName)
	}
	w.integer("line", fn.Line)
	w.end()
}

func (w *writer) enum(e *meta.Enum) {
	w.begin()
	w.list("attrs", e.Attrs)

	w.name("values")
	w.begin()
	for _, v := range e.Values {
		w.name(v.Name)
		w.begin()
		w.list("attrs", v.Attrs)
		w.unsigned("value", v.Value)
		w.str("comment", v.Comment)
		w.integer("line", v.Line)
		w.end()
	}
	w.end()

	w.boolean("isScoped", e.IsScoped)
	w.str("underlying_type", e.UnderlyingType)
	w.str("comment", e.Comment)
	w.str("fileName", e.FileName)
	w.integer("line", e.Line)
	w.end()
}
