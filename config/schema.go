package config

import (
	"path"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/aidas-vision/aidas/services/detection"
)

var configPkgPath = reflect.TypeOf(Config{}).PkgPath()

// schemaTypeName qualifies types from other packages with their package name so that
// same-named structs such as objectdetection.Config get their own definition.
func schemaTypeName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" || t.PkgPath() == configPkgPath {
		return ""
	}
	pkg := path.Base(t.PkgPath())
	return strings.ToUpper(pkg[:1]) + pkg[1:] + t.Name()
}

// Schema describes the config file format.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{Namer: schemaTypeName}
	return r.Reflect(&Config{})
}

// BackendSchemas describes the attributes of every registered backend that published them.
func BackendSchemas() map[string]*jsonschema.Schema {
	out := map[string]*jsonschema.Schema{}
	for _, name := range detection.BackendNames() {
		reg, err := detection.BackendLookup(name)
		if err != nil || reg.Attributes == nil {
			continue
		}
		out[name] = jsonschema.Reflect(reg.Attributes)
	}
	return out
}
