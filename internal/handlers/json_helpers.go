package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"
)

// JSONResponse encodes data as JSON with nil slices normalized to empty
// arrays. Frontends consuming the API expect [] rather than null for list
// fields, so handlers use this instead of encoding directly.
func JSONResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(normalizeSlices(data))
}

var timeType = reflect.TypeOf(time.Time{})

// normalizeSlices recursively replaces nil slices with empty ones. time.Time
// values are copied as-is; reflecting into them breaks their marshaling.
func normalizeSlices(data interface{}) interface{} {
	if data == nil {
		return data
	}

	v := reflect.ValueOf(data)

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() || v.Elem().Type() == timeType {
			return data
		}
		normalized := normalizeSlices(v.Elem().Interface())
		result := reflect.New(v.Elem().Type())
		result.Elem().Set(reflect.ValueOf(normalized))
		return result.Interface()

	case reflect.Slice:
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0).Interface()
		}
		result := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			result.Index(i).Set(reflect.ValueOf(normalizeSlices(v.Index(i).Interface())))
		}
		return result.Interface()

	case reflect.Struct:
		if v.Type() == timeType {
			return data
		}
		result := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() || !result.Field(i).CanSet() {
				continue
			}
			switch field.Kind() {
			case reflect.Slice, reflect.Ptr, reflect.Struct:
				result.Field(i).Set(reflect.ValueOf(normalizeSlices(field.Interface())))
			default:
				result.Field(i).Set(field)
			}
		}
		return result.Interface()
	}

	return data
}
