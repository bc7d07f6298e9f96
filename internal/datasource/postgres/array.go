package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func writeArray(b *strings.Builder, values []interface{}) error {
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeArrayElement(b, v); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func writeArrayElement(b *strings.Builder, v interface{}) error {
	switch v := v.(type) {
	case nil:
		b.WriteString("NULL")
	case []interface{}:
		return writeArray(b, v)
	case []string:
		nested := make([]interface{}, len(v))
		for i := range v {
			nested[i] = v[i]
		}
		return writeArray(b, nested)
	case string:
		b.WriteString(quoteArrayString(v))
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		fmt.Fprint(b, v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("cannot encode array element of type %T: %w", v, err)
		}
		b.WriteString(quoteArrayString(string(raw)))
	}
	return nil
}

// quoteArrayString double quotes an element when postgres would otherwise
// misread it.
func quoteArrayString(s string) string {
	if s != "" && !strings.ContainsAny(s, "{},\"\\ \t\n") && !strings.EqualFold(s, "NULL") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
