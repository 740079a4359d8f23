package sanitize

import (
	"fmt"
	"reflect"

	oerrors "github.com/porthorian/accountgate/pkg/errors"
)

// Projector is a domain record that produces its transfer object form.
type Projector[T any] interface {
	TransferObject() (T, error)
}

// Sanitize projects every item and encodes unsafe string fields of the
// projections in place. The result has one element per item, in item
// order. Any failure aborts the whole batch.
func Sanitize[T any, P Projector[T]](r *Registry, items []P) ([]T, error) {
	fields, err := Fields[T](r)
	if err != nil {
		return nil, err
	}

	out := make([]T, len(items))
	for i, item := range items {
		if isNil(item) {
			return nil, oerrors.New(oerrors.CodeEncoding, fmt.Sprintf("sanitize: item %d is nil", i))
		}

		dto, err := item.TransferObject()
		if err != nil {
			return nil, oerrors.Wrap(oerrors.CodeEncoding, fmt.Sprintf("sanitize: project item %d", i), err)
		}
		if isNil(dto) {
			return nil, oerrors.New(oerrors.CodeEncoding, fmt.Sprintf("sanitize: item %d projected to nil", i))
		}

		for _, field := range fields {
			value, err := field.Get(dto)
			if err != nil {
				return nil, oerrors.Wrap(oerrors.CodeEncoding, fmt.Sprintf("sanitize: read %s of item %d", field.Name, i), err)
			}

			encoded := Encode(value)
			if encoded == value {
				continue
			}
			if err := field.Set(dto, encoded); err != nil {
				return nil, oerrors.Wrap(oerrors.CodeEncoding, fmt.Sprintf("sanitize: write %s of item %d", field.Name, i), err)
			}
		}
		out[i] = dto
	}

	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
