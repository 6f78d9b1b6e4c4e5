package params

import (
	"fmt"
	"strconv"
	"strings"

	"paramgen/internal/source"
)

// EnumSuffix is appended to a parameter's base name to form its
// identifier in the generated enumeration.
const EnumSuffix = "_param_id"

// Descriptor is one validated parameter. It is immutable once the table is
// built.
type Descriptor struct {
	Identifier string
	Name       string // identifier without EnumSuffix and width suffix
	DataType   string
	Bits       int
	Default    string
	HasDefault bool
	ID         int
	Tags       []string // explicit tags followed by Identifier and Name
	Span       source.Span
}

// EnumName is the enumeration constant of the parameter.
func (d *Descriptor) EnumName() string {
	if strings.HasSuffix(d.Identifier, EnumSuffix) || strings.Contains(d.Identifier, EnumSuffix+"_") {
		return d.Identifier
	}
	return d.Name + EnumSuffix
}

// DefaultOr returns the default value, or fallback when there is none.
func (d *Descriptor) DefaultOr(fallback string) string {
	if d.HasDefault {
		return d.Default
	}
	return fallback
}

// Size is the storage size in bytes.
func (d *Descriptor) Size() int {
	return (d.Bits + 7) / 8
}

// HexID renders ID as a zero-padded hexadecimal literal.
func (d *Descriptor) HexID() string {
	return fmt.Sprintf("0x%04X", d.ID)
}

// HasTag reports whether label is one of the parameter's tags.
func (d *Descriptor) HasTag(label string) bool {
	for _, t := range d.Tags {
		if t == label {
			return true
		}
	}
	return false
}

// Vars returns the per-parameter substitution variables. Both the p_ and
// p# spellings are provided.
func (d *Descriptor) Vars() [][2]string {
	def := d.DefaultOr("0")
	values := [][2]string{
		{"identifier", d.Identifier},
		{"name", d.Name},
		{"enumName", d.EnumName()},
		{"dataType", d.DataType},
		{"dType", strconv.Itoa(d.Bits)},
		{"size", strconv.Itoa(d.Size())},
		{"default", def},
		{"defaultValue", def},
		{"id", strconv.Itoa(d.ID)},
		{"hexId", d.HexID()},
	}
	out := make([][2]string, 0, 2*len(values))
	for _, v := range values {
		out = append(out, [2]string{"p_" + v[0], v[1]}, [2]string{"p#" + v[0], v[1]})
	}
	return out
}

var widthTypes = map[string]int{
	"8":  8,
	"16": 16,
	"32": 32,
	"64": 64,
}

// splitIdentifier derives the base name and the width suffix (0 if none)
// of an identifier such as "sensor_loop_param_id_32".
func splitIdentifier(id string) (name string, bits int) {
	name = strings.TrimSuffix(id, EnumSuffix)
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		if w, ok := widthTypes[name[i+1:]]; ok {
			bits = w
			name = name[:i]
		}
	}
	name = strings.TrimSuffix(name, EnumSuffix)
	return name, bits
}

// typeBits returns the bit width of a C scalar type, or 0 if unknown.
func typeBits(typ string) int {
	switch typ {
	case "bool", "char", "int8_t", "uint8_t":
		return 8
	case "int16_t", "uint16_t":
		return 16
	case "float", "int32_t", "uint32_t":
		return 32
	case "double", "int64_t", "uint64_t":
		return 64
	}
	return 0
}

func unsignedType(bits int) string {
	return fmt.Sprintf("uint%d_t", bits)
}
