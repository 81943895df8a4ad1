package util

import (
	"io"
	"reflect"
)

// CloseWithErr closes a resource and logs any error under the given name.
func CloseWithErr(closer io.Closer, name string) {
	if closer == nil {
		return
	}
	if val := reflect.ValueOf(closer); val.Kind() == reflect.Ptr && val.IsNil() {
		return
	}
	if err := closer.Close(); err != nil {
		if name == "" {
			name = "resource"
		}
		Warnf("close %s: %v", name, err)
	}
}
