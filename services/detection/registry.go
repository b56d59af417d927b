package detection

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/utils"
	"github.com/aidas-vision/aidas/vision/objectdetection"
)

// A CreateBuilder turns backend attributes into a detector builder.
type CreateBuilder func(attrs utils.AttributeMap, logger logging.Logger) (objectdetection.Builder, error)

// BackendRegistration stores a backend constructor (mandatory) and an example of the attribute
// struct it accepts, used to describe the backend in the config schema.
type BackendRegistration struct {
	Constructor CreateBuilder
	Attributes  interface{}
}

var (
	backendRegistryMu sync.RWMutex
	backendRegistry   = map[string]BackendRegistration{}
)

// SimpleBackend is the name of the built-in pure Go backend.
const SimpleBackend = "simple"

// SimpleAttributes configure the simple backend.
type SimpleAttributes struct {
	// LuminanceThreshold is the gray level (0-256) below which a pixel belongs to an object.
	LuminanceThreshold float64 `json:"luminance_threshold,omitempty"`
}

func init() {
	RegisterBackend(SimpleBackend, BackendRegistration{
		Constructor: func(attrs utils.AttributeMap, logger logging.Logger) (objectdetection.Builder, error) {
			conf, err := utils.TransformAttributeMap[*SimpleAttributes](attrs)
			if err != nil {
				return nil, errors.Wrap(err, "simple backend attributes")
			}
			threshold := conf.LuminanceThreshold
			if threshold == 0 {
				threshold = 20
			}
			return objectdetection.NewSimpleBuilder(threshold), nil
		},
		Attributes: &SimpleAttributes{},
	})
}

// RegisterBackend registers a detector backend under name. It panics on duplicates and nil
// constructors.
func RegisterBackend(name string, reg BackendRegistration) {
	backendRegistryMu.Lock()
	defer backendRegistryMu.Unlock()
	if _, old := backendRegistry[name]; old {
		panic(errors.Errorf("trying to register two detector backends with the same name: %s", name))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for detector backend: %s", name))
	}
	backendRegistry[name] = reg
}

// BackendLookup looks up a backend registration by name.
func BackendLookup(name string) (*BackendRegistration, error) {
	backendRegistryMu.RLock()
	defer backendRegistryMu.RUnlock()
	reg, ok := backendRegistry[name]
	if !ok {
		return nil, errors.Errorf("no detector backend with name %q", name)
	}
	return &reg, nil
}

// BackendNames returns the sorted names of every registered backend.
func BackendNames() []string {
	backendRegistryMu.RLock()
	defer backendRegistryMu.RUnlock()
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBuilder constructs a builder from the named backend.
func NewBuilder(name string, attrs utils.AttributeMap, logger logging.Logger) (objectdetection.Builder, error) {
	reg, err := BackendLookup(name)
	if err != nil {
		return nil, err
	}
	return reg.Constructor(attrs, logger)
}
