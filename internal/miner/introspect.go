package miner

import (
	"reflect"

	"scrapworks.ai/internal/host"
	"scrapworks.ai/internal/sim/inventory"
)

var (
	containerType = reflect.TypeOf((*inventory.Container)(nil))
	storageType   = reflect.TypeOf((*host.StorageEntity)(nil)).Elem()
)

// introspectContainer is the last-resort lookup for host object variants that do not
// implement any storage capability: it looks for an exported field (embedded structs
// flattened) or a zero-argument getter whose type is a container.
func introspectContainer(obj any) *inventory.Container {
	if isNilValue(obj) {
		return nil
	}
	v := reflect.ValueOf(obj)
	if c := fieldContainer(v, 0); c != nil {
		return c
	}
	return getterContainer(v)
}

func fieldContainer(v reflect.Value, depth int) *inventory.Container {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct || depth > maxHierarchyDepth {
		return nil
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := v.Field(i)
		if f.Anonymous {
			if c := fieldContainer(fv, depth+1); c != nil {
				return c
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if c := memberContainer(fv); c != nil {
			return c
		}
	}
	return nil
}

func memberContainer(fv reflect.Value) (c *inventory.Container) {
	defer func() {
		if recover() != nil {
			c = nil
		}
	}()
	if !fv.CanInterface() {
		return nil
	}
	ft := fv.Type()
	switch {
	case ft == containerType:
		c, _ = fv.Interface().(*inventory.Container)
	case ft.Implements(storageType):
		if (ft.Kind() == reflect.Pointer || ft.Kind() == reflect.Interface) && fv.IsNil() {
			return nil
		}
		if s, ok := fv.Interface().(host.StorageEntity); ok {
			c = s.Inventory()
		}
	}
	return c
}

func getterContainer(v reflect.Value) *inventory.Container {
	for i := 0; i < v.NumMethod(); i++ {
		m := v.Method(i)
		mt := m.Type()
		if mt.NumIn() != 0 || mt.NumOut() != 1 || mt.Out(0) != containerType {
			continue
		}
		if c := callGetter(m); c != nil {
			return c
		}
	}
	return nil
}

func callGetter(m reflect.Value) (c *inventory.Container) {
	defer func() {
		if recover() != nil {
			c = nil
		}
	}()
	out := m.Call(nil)
	c, _ = out[0].Interface().(*inventory.Container)
	return c
}
