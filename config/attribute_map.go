package config

import (
	"fmt"
)

// AttributeMap is a generic JSON object, as found in the attributes of a robot component.
// Its typed getters panic on a value of the wrong type.
type AttributeMap map[string]interface{}

// Has reports whether name is set.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the named string, or "" when it is absent.
func (am AttributeMap) String(name string) string {
	x := am[name]
	if x == nil {
		return ""
	}
	if s, ok := x.(string); ok {
		return s
	}
	panic(fmt.Errorf("wanted a string for (%s) but got (%v) %T", name, x, x))
}

// Float64 returns the named number, or def when it is absent. Integers are converted.
func (am AttributeMap) Float64(name string, def float64) float64 {
	x, has := am[name]
	if !has {
		return def
	}
	switch v := x.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		panic(fmt.Errorf("wanted a float64 for (%s) but got (%v) %T", name, x, x))
	}
}

// Bool returns the named boolean, or def when it is absent.
func (am AttributeMap) Bool(name string, def bool) bool {
	x, has := am[name]
	if !has {
		return def
	}
	if v, ok := x.(bool); ok {
		return v
	}
	panic(fmt.Errorf("wanted a bool for (%s) but got (%v) %T", name, x, x))
}

// Map returns the named nested object, or nil when it is absent.
func (am AttributeMap) Map(name string) AttributeMap {
	x := am[name]
	if x == nil {
		return nil
	}
	switch v := x.(type) {
	case map[string]interface{}:
		return AttributeMap(v)
	case AttributeMap:
		return v
	default:
		panic(fmt.Errorf("wanted an object for (%s) but got (%v) %T", name, x, x))
	}
}
