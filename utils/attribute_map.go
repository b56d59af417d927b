package utils

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a free-form set of attributes, as found in JSON config.
type AttributeMap map[string]interface{}

// Has returns whether the map contains name.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the string stored under name, or the empty string.
func (am AttributeMap) String(name string) string {
	if s, ok := am[name].(string); ok {
		return s
	}
	return ""
}

// Float64 returns the number stored under name, or def.
func (am AttributeMap) Float64(name string, def float64) float64 {
	switch v := am[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// DecodeHook is the hook used for every attribute decode: durations from strings and any type
// implementing encoding.TextUnmarshaler.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// TransformAttributeMap uses an attribute map to transform attributes to the prescribed format.
// Unknown keys are an error.
func TransformAttributeMap[T any](attributes AttributeMap) (T, error) {
	var out T

	var forResult interface{}

	toT := reflect.TypeOf(out)
	if toT == nil {
		// nothing to transform
		return out, nil
	}
	if toT.Kind() == reflect.Ptr {
		// needs to be allocated then
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	if err := DecodeAttributeMap(attributes, forResult); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeAttributeMap decodes attributes into result, which must be a pointer. Fields of result
// whose keys are absent keep their current values, so result can be pre-filled with defaults.
// Unknown keys are an error.
func DecodeAttributeMap(attributes AttributeMap, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      result,
		DecodeHook:  DecodeHook(),
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(attributes))
}
