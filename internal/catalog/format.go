package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat - в каталоге указан неизвестный формат значения
var ErrUnknownFormat = errors.New("неизвестный формат поля")

// Format задаёт интерпретацию слотов поля
type Format uint8

const (
	Default Format = iota
	Uint
	Int
	Float
	Bytes
	GUID
	Quaternion
	PackedQuaternion
	Custom
)

var formatNames = [...]string{
	Default:          "default",
	Uint:             "uint",
	Int:              "int",
	Float:            "float",
	Bytes:            "bytes",
	GUID:             "guid",
	Quaternion:       "quaternion",
	PackedQuaternion: "packed_quaternion",
	Custom:           "custom",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat разбирает имя формата; пустая строка - Default
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return Default, nil
	}
	for i, name := range formatNames {
		if strings.EqualFold(name, s) {
			return Format(i), nil
		}
	}
	return Default, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}
