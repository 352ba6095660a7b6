// ABOUTME: Open-record support: typed structs plus a side-map of unknown keys.
// ABOUTME: Keeps static guarantees while tolerating service schema drift.

package dust

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Extra holds the keys of an API object that the typed model does not
// declare. The service adds fields over time; they are preserved here
// instead of being dropped.
type Extra map[string]json.RawMessage

// unmarshalOpen decodes data into v (a pointer to a struct that does not
// implement json.Unmarshaler) and returns the side-map of keys the struct
// does not declare. Returns a nil map when every key was recognized.
func unmarshalOpen(data []byte, v any) (Extra, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	typ := reflect.TypeOf(v).Elem()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		delete(all, name)
	}

	if len(all) == 0 {
		return nil, nil
	}
	return Extra(all), nil
}
