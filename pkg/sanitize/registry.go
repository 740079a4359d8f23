package sanitize

import (
	"fmt"
	"reflect"

	oerrors "github.com/porthorian/accountgate/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// Field is one string-valued property of a transfer object type.
type Field[T any] struct {
	Name string
	Get  func(T) (string, error)
	Set  func(T, string) error
}

// StringField builds a Field from an accessor returning the address of a
// string member.
func StringField[T any](name string, ref func(T) *string) Field[T] {
	return Field[T]{
		Name: name,
		Get: func(v T) (string, error) {
			return *ref(v), nil
		},
		Set: func(v T, value string) error {
			*ref(v) = value
			return nil
		},
	}
}

// Registry holds the string field set of each transfer object type. Sets
// are computed once per type and never change afterwards.
type Registry struct {
	fields *xsync.MapOf[reflect.Type, any]
}

func NewRegistry() *Registry {
	return &Registry{
		fields: xsync.NewMapOf[reflect.Type, any](),
	}
}

// Register installs an explicit field set for T. A type can be registered
// once, and only before it was first introspected.
func Register[T any](r *Registry, fields ...Field[T]) error {
	if r == nil {
		return fmt.Errorf("sanitize: registry is nil")
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	for _, field := range fields {
		if field.Name == "" || field.Get == nil || field.Set == nil {
			return fmt.Errorf("sanitize: field of %s requires name, getter and setter", typ)
		}
	}

	set := append([]Field[T](nil), fields...)
	if _, loaded := r.fields.LoadOrStore(typ, set); loaded {
		return fmt.Errorf("sanitize: field set for %s already registered", typ)
	}
	return nil
}

// Fields returns the cached field set for T, introspecting pointer to
// struct types on first use. Concurrent first calls may introspect
// more than once; the first stored set wins.
func Fields[T any](r *Registry) ([]Field[T], error) {
	if r == nil {
		return nil, oerrors.New(oerrors.CodeReflection, "sanitize: registry is nil")
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if cached, ok := r.fields.Load(typ); ok {
		return cached.([]Field[T]), nil
	}

	computed, err := introspect[T](typ)
	if err != nil {
		return nil, err
	}

	actual, _ := r.fields.LoadOrStore(typ, computed)
	return actual.([]Field[T]), nil
}

var stringPtrType = reflect.TypeOf((**string)(nil)).Elem()

func introspect[T any](typ reflect.Type) ([]Field[T], error) {
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return nil, oerrors.New(oerrors.CodeReflection, fmt.Sprintf("sanitize: %s is not a pointer to struct", typ))
	}

	var fields []Field[T]
	for _, sf := range reflect.VisibleFields(typ.Elem()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		index := sf.Index
		switch {
		case sf.Type.Kind() == reflect.String:
			fields = append(fields, Field[T]{
				Name: sf.Name,
				Get: func(v T) (string, error) {
					field, err := structField(v, index)
					if err != nil {
						return "", err
					}
					return field.String(), nil
				},
				Set: func(v T, value string) error {
					field, err := structField(v, index)
					if err != nil {
						return err
					}
					field.SetString(value)
					return nil
				},
			})
		case sf.Type == stringPtrType:
			fields = append(fields, Field[T]{
				Name: sf.Name,
				Get: func(v T) (string, error) {
					field, err := structField(v, index)
					if err != nil {
						return "", err
					}
					if field.IsNil() {
						return "", nil
					}
					return field.Elem().String(), nil
				},
				Set: func(v T, value string) error {
					field, err := structField(v, index)
					if err != nil {
						return err
					}
					if field.IsNil() {
						return fmt.Errorf("sanitize: %s is nil", sf.Name)
					}
					field.Elem().SetString(value)
					return nil
				},
			})
		}
	}

	if fields == nil {
		fields = []Field[T]{}
	}
	return fields, nil
}

func structField[T any](v T, index []int) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("sanitize: nil transfer object")
	}
	return rv.Elem().FieldByIndexErr(index)
}
