// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// extracted metadata.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/cppmeta/internal/meta"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode renders the reflected entities of data as TOON tables, one row
// per file, record, enum and free function, in file order.
func Encode(project string, data *meta.DataMap) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(project)))

	var fileRows, recordRows, enumRows, funcRows [][]string
	for _, rel := range data.Files() {
		db, _ := data.Lookup(rel)
		if db.Empty() {
			continue
		}
		fileRows = append(fileRows, []string{
			rel,
			strconv.Itoa(len(db.Records)),
			strconv.Itoa(len(db.Enums)),
			strconv.Itoa(len(db.Functions)),
		})

		for i := range db.Records {
			r := &db.Records[i]
			recordRows = append(recordRows, []string{
				rel,
				r.Name,
				strconv.Itoa(r.Line),
				strconv.Itoa(len(r.Fields) + len(r.Statics)),
				strconv.Itoa(len(r.Methods) + len(r.Ctors)),
				strings.Join(r.Attrs, " "),
			})
		}
		for i := range db.Enums {
			e := &db.Enums[i]
			enumRows = append(enumRows, []string{
				rel,
				e.Name,
				strconv.Itoa(e.Line),
				e.UnderlyingType,
				strconv.Itoa(len(e.Values)),
			})
		}
		for i := range db.Functions {
			fn := &db.Functions[i]
			funcRows = append(funcRows, []string{
				rel,
				fn.Name,
				strconv.Itoa(fn.Line),
				signature(fn),
			})
		}
	}

	parts = append(parts, formatTabular("files", []string{"path", "records", "enums", "functions"}, fileRows))
	parts = append(parts, formatTabular("records", []string{"file", "name", "line", "fields", "methods", "attrs"}, recordRows))
	parts = append(parts, formatTabular("enums", []string{"file", "name", "line", "type", "values"}, enumRows))
	parts = append(parts, formatTabular("functions", []string{"file", "name", "line", "signature"}, funcRows))

	return strings.Join(parts, "\n")
}

// signature renders fn as "ret(param, ...)".
func signature(fn *meta.Function) string {
	params := make([]string, len(fn.Parameters))
	for i := range fn.Parameters {
		params[i] = fn.Parameters[i].Type
	}
	return fn.RetType + "(" + strings.Join(params, ", ") + ")"
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
