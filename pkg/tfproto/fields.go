package tfproto

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Field returns the field of m called name, as spelled in the .proto file. It panics when m has
// no such field.
func Field(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("tfproto: %s has no field %s", m.Descriptor().FullName(), name))
	}
	return fd
}

// Get reads a field. Unset fields read as their zero value: an empty list, map or message.
func Get(m protoreflect.Message, name protoreflect.Name) protoreflect.Value {
	return m.Get(Field(m, name))
}

func Set(m protoreflect.Message, name protoreflect.Name, v protoreflect.Value) {
	m.Set(Field(m, name), v)
}

func Has(m protoreflect.Message, name protoreflect.Name) bool {
	return m.Has(Field(m, name))
}

// Mutable returns the message field name of m, allocating it when unset. Allocating a oneof
// member clears the other members, and an allocated message is encoded even when empty.
func Mutable(m protoreflect.Message, name protoreflect.Name) protoreflect.Message {
	return m.Mutable(Field(m, name)).Message()
}

func MutableList(m protoreflect.Message, name protoreflect.Name) protoreflect.List {
	return m.Mutable(Field(m, name)).List()
}

func MutableMap(m protoreflect.Message, name protoreflect.Name) protoreflect.Map {
	return m.Mutable(Field(m, name)).Map()
}

func String(m protoreflect.Message, name protoreflect.Name) string {
	return Get(m, name).String()
}

func Int64(m protoreflect.Message, name protoreflect.Name) int64 {
	return Get(m, name).Int()
}

// Message reads a message field, or returns nil when it is unset.
func Message(m protoreflect.Message, name protoreflect.Name) protoreflect.Message {
	fd := Field(m, name)
	if !m.Has(fd) {
		return nil
	}
	return m.Get(fd).Message()
}

// Messages reads a repeated message field.
func Messages(m protoreflect.Message, name protoreflect.Name) []protoreflect.Message {
	list := Get(m, name).List()
	out := make([]protoreflect.Message, list.Len())
	for i := range out {
		out[i] = list.Get(i).Message()
	}
	return out
}

// MapEntry reads the message stored under key in a map field, or returns nil when key is absent.
func MapEntry(m protoreflect.Message, name protoreflect.Name, key string) protoreflect.Message {
	values := Get(m, name).Map()
	k := protoreflect.ValueOfString(key).MapKey()
	if !values.Has(k) {
		return nil
	}
	return values.Get(k).Message()
}
