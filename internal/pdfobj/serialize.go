package pdfobj

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/tsawler/tabula/core"
)

// SortedKeys returns the keys of d in lexical order.
func SortedKeys(d core.Dict) []string {
	keys := d.Keys()
	sort.Strings(keys)
	return keys
}

// FormatNumber formats a real number the way PDF writers usually do: at most
// four decimals, no trailing zeros, no exponent.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	if bytes.ContainsRune([]byte(s), '.') {
		for len(s) > 0 && s[len(s)-1] == '0' {
			s = s[:len(s)-1]
		}
		if len(s) > 0 && s[len(s)-1] == '.' {
			s = s[:len(s)-1]
		}
	}
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// Write serializes obj in PDF syntax. Dictionary keys are emitted in sorted
// order so the output is byte-for-byte reproducible.
func Write(buf *bytes.Buffer, obj core.Object) error {
	switch v := obj.(type) {
	case nil, core.Null:
		buf.WriteString("null")
	case core.Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case core.Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case core.Real:
		buf.WriteString(FormatNumber(float64(v)))
	case core.String:
		WriteString(buf, []byte(v))
	case core.Name:
		buf.WriteByte('/')
		buf.WriteString(EscapeName(string(v)))
	case core.IndirectRef:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	case core.Array:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := Write(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case core.Dict:
		buf.WriteString("<<")
		for _, key := range SortedKeys(v) {
			buf.WriteByte('/')
			buf.WriteString(EscapeName(key))
			buf.WriteByte(' ')
			if err := Write(buf, v[key]); err != nil {
				return err
			}
		}
		buf.WriteString(">>")
	case *core.Stream:
		dict := make(core.Dict, len(v.Dict)+1)
		for k, val := range v.Dict {
			dict[k] = val
		}
		dict["Length"] = core.Int(len(v.Data))
		if err := Write(buf, dict); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		return fmt.Errorf("cannot serialize object of type %T", obj)
	}
	return nil
}

// WriteIndirect writes "num gen obj ... endobj" followed by a newline.
func WriteIndirect(buf *bytes.Buffer, ref core.IndirectRef, obj core.Object) error {
	fmt.Fprintf(buf, "%d %d obj\n", ref.Number, ref.Generation)
	if err := Write(buf, obj); err != nil {
		return fmt.Errorf("object %d: %w", ref.Number, err)
	}
	buf.WriteString("\nendobj\n")
	return nil
}

// WriteString writes a string object. Printable data is written as a
// literal string with escapes, anything else as a hex string.
func WriteString(buf *bytes.Buffer, data []byte) {
	printable := true
	for _, b := range data {
		if (b < 0x20 && b != '\n' && b != '\r' && b != '\t') || b >= 0x7f {
			printable = false
			break
		}
	}

	if !printable {
		buf.WriteByte('<')
		for _, b := range data {
			fmt.Fprintf(buf, "%02X", b)
		}
		buf.WriteByte('>')
		return
	}

	buf.WriteByte('(')
	for _, b := range data {
		switch b {
		case '\\', '(', ')':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}

// EscapeName encodes the characters a name may not carry literally as #xx.
func EscapeName(name string) string {
	var b bytes.Buffer
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f || c == '#' || bytes.IndexByte([]byte("()<>[]{}/%"), c) >= 0 {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
