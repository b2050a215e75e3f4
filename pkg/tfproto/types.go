package tfproto

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// DataType is tensorflow.DataType.
type DataType int32

const (
	DataTypeInvalid    DataType = 0
	DataTypeFloat      DataType = 1
	DataTypeDouble     DataType = 2
	DataTypeInt32      DataType = 3
	DataTypeUint8      DataType = 4
	DataTypeString     DataType = 7
	DataTypeInt64      DataType = 9
	DataTypeBool       DataType = 10
	DataTypeHalf       DataType = 19
	DataTypeFloat8E5M2 DataType = 24
)

var (
	dataTypeEnum          = enumDescriptor("tensorflow.DataType")
	modelVersionStateEnum = enumDescriptor("tensorflow.serving.ModelVersionStatus.State")
	errorCodeEnum         = enumDescriptor("tensorflow.error.Code")
)

// String returns the schema name, e.g. "DT_FLOAT".
func (d DataType) String() string {
	if v := dataTypeEnum.Values().ByNumber(protoreflect.EnumNumber(d)); v != nil {
		return string(v.Name())
	}
	return fmt.Sprintf("DataType(%d)", int32(d))
}

// Value wraps d for a dtype field.
func (d DataType) Value() protoreflect.Value {
	return protoreflect.ValueOfEnum(protoreflect.EnumNumber(d))
}

// DtypeOf reads the dtype field of a TensorProto or TensorInfo.
func DtypeOf(m protoreflect.Message) DataType {
	return DataType(Get(m, "dtype").Enum())
}

// ModelVersionState is tensorflow.serving.ModelVersionStatus.State.
type ModelVersionState int32

const (
	ModelVersionStateUnknown   ModelVersionState = 0
	ModelVersionStateStart     ModelVersionState = 10
	ModelVersionStateLoading   ModelVersionState = 20
	ModelVersionStateAvailable ModelVersionState = 30
	ModelVersionStateUnloading ModelVersionState = 40
	ModelVersionStateEnd       ModelVersionState = 50
)

func (s ModelVersionState) String() string {
	if v := modelVersionStateEnum.Values().ByNumber(protoreflect.EnumNumber(s)); v != nil {
		return string(v.Name())
	}
	return "UNKNOWN"
}

// ErrorCodeName names a tensorflow.error.Code, e.g. "NOT_FOUND".
func ErrorCodeName(code int32) string {
	if v := errorCodeEnum.Values().ByNumber(protoreflect.EnumNumber(code)); v != nil {
		return string(v.Name())
	}
	return fmt.Sprintf("Code(%d)", code)
}
