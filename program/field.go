package program

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/arloliu/sqlgate/types"
)

// Record maps field names to values.
type Record = types.Record

// Field describes one fixed-width slot in a program-call record.
type Field struct {
	// Name is the record key for this field.
	Name string

	// Size is the width in bytes. For numeric fields a leading '-' takes one position.
	Size int

	// Decimals is the number of implied fractional digits for numeric fields.
	Decimals int

	// Numeric selects zoned decimal encoding instead of character data.
	Numeric bool
}

// Char creates a character field of the given width.
func Char(name string, size int) Field {
	return Field{Name: name, Size: size}
}

// Decimal creates a numeric field with size total digits, decimals of them fractional.
func Decimal(name string, size, decimals int) Field {
	return Field{Name: name, Size: size, Decimals: decimals, Numeric: true}
}

// Descriptor is the validated layout of one program's record.
//
// Descriptors are immutable and safe for concurrent use.
type Descriptor struct {
	program string
	fields  []Field
	offsets []int
	length  int
}

// NewDescriptor validates fields and computes their offsets.
//
// Parameters:
//   - program: The program name, used in error messages and for routing
//   - fields: The record layout, in order
//
// Returns:
//   - *Descriptor: The validated layout
//   - error: MarshallingError wrapping types.ErrInvalidField for an empty or
//     duplicate name, a non-positive size, or decimals outside [0, size]
func NewDescriptor(program string, fields ...Field) (*Descriptor, error) {
	d := &Descriptor{
		program: program,
		fields:  make([]Field, len(fields)),
		offsets: make([]int, len(fields)),
	}
	copy(d.fields, fields)

	seen := make(map[string]struct{}, len(fields))
	for i, f := range d.fields {
		switch {
		case f.Name == "":
			return nil, d.fieldError(fmt.Sprintf("#%d", i), "empty field name", types.ErrInvalidField)
		case f.Size <= 0:
			return nil, d.fieldError(f.Name, "size must be positive", types.ErrInvalidField)
		case f.Decimals < 0 || f.Decimals > f.Size:
			return nil, d.fieldError(f.Name, "decimals out of range", types.ErrInvalidField)
		case f.Decimals > 0 && !f.Numeric:
			return nil, d.fieldError(f.Name, "decimals on a character field", types.ErrInvalidField)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, d.fieldError(f.Name, "duplicate field name", types.ErrInvalidField)
		}
		seen[f.Name] = struct{}{}

		d.offsets[i] = d.length
		d.length += f.Size
	}

	return d, nil
}

// Program returns the program name.
func (d *Descriptor) Program() string {
	return d.program
}

// Fields returns a copy of the record layout.
func (d *Descriptor) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)

	return out
}

// Len returns the encoded record length in bytes.
func (d *Descriptor) Len() int {
	return d.length
}

// Encode writes in into a fixed-format record.
//
// Fields missing from in are encoded as blanks (character) or zero (numeric).
// Keys of in that are not part of the layout are ignored.
//
// Parameters:
//   - in: Field values keyed by name
//
// Returns:
//   - []byte: The encoded record of exactly Len() bytes
//   - error: MarshallingError on overflow or unsupported value type
func (d *Descriptor) Encode(in Record) ([]byte, error) {
	buf := bytes.Repeat([]byte{' '}, d.length)

	for i, f := range d.fields {
		slot := buf[d.offsets[i] : d.offsets[i]+f.Size]
		v := in[f.Name]

		var err error
		if f.Numeric {
			err = d.encodeNumeric(slot, f, v)
		} else {
			err = d.encodeChar(slot, f, v)
		}
		if err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// Decode reads a fixed-format record back into a Record.
//
// Character fields are trimmed of trailing spaces and NULs. Numeric fields
// decode to int64 when Decimals is 0 and to float64 otherwise.
//
// Parameters:
//   - buf: The encoded record, exactly Len() bytes
//
// Returns:
//   - Record: Field values keyed by name
//   - error: MarshallingError on a length mismatch or malformed numeric text
func (d *Descriptor) Decode(buf []byte) (Record, error) {
	if len(buf) != d.length {
		return nil, &types.MarshallingError{
			Program: d.program,
			Reason:  fmt.Sprintf("record length %d, expected %d", len(buf), d.length),
			Cause:   types.ErrFieldOverflow,
		}
	}

	out := make(Record, len(d.fields))
	for i, f := range d.fields {
		slot := buf[d.offsets[i] : d.offsets[i]+f.Size]
		if !f.Numeric {
			out[f.Name] = strings.TrimRight(string(slot), " \x00")

			continue
		}

		v, err := d.decodeNumeric(slot, f)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}

	return out, nil
}

func (d *Descriptor) encodeChar(slot []byte, f Field, v any) error {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case []byte:
		s = string(val)
	case fmt.Stringer:
		s = val.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = fmt.Sprint(val)
	default:
		return d.fieldError(f.Name, fmt.Sprintf("cannot encode %T as character data", v), types.ErrFieldType)
	}

	if len(s) > f.Size {
		return d.fieldError(f.Name, fmt.Sprintf("%d bytes exceed size %d", len(s), f.Size), types.ErrFieldOverflow)
	}
	copy(slot, s)

	return nil
}

func (d *Descriptor) encodeNumeric(slot []byte, f Field, v any) error {
	r, ok := toRat(v)
	if !ok {
		return d.fieldError(f.Name, fmt.Sprintf("cannot encode %T as numeric data", v), types.ErrFieldType)
	}

	scaled := scaleRound(r, f.Decimals)
	negative := scaled.Sign() < 0
	digits := new(big.Int).Abs(scaled).String()

	width := f.Size
	if negative {
		width--
	}
	if len(digits) > width {
		return d.fieldError(f.Name, fmt.Sprintf("value %s exceeds %d digits", r.FloatString(f.Decimals), f.Size), types.ErrFieldOverflow)
	}

	pos := 0
	if negative {
		slot[0] = '-'
		pos = 1
	}
	for ; pos < f.Size-len(digits); pos++ {
		slot[pos] = '0'
	}
	copy(slot[pos:], digits)

	return nil
}

func (d *Descriptor) decodeNumeric(slot []byte, f Field) (any, error) {
	text := strings.Trim(string(slot), " \x00")
	negative := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	if text == "" {
		text = "0"
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return nil, d.fieldError(f.Name, fmt.Sprintf("invalid numeric text %q", string(slot)), types.ErrFieldType)
		}
	}

	if negative {
		text = "-" + text
	}

	if f.Decimals == 0 {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, d.fieldError(f.Name, err.Error(), types.ErrFieldOverflow)
		}

		return n, nil
	}

	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, d.fieldError(f.Name, fmt.Sprintf("invalid numeric text %q", string(slot)), types.ErrFieldType)
	}
	r.Quo(r, pow10(f.Decimals))
	val, _ := r.Float64()

	return val, nil
}

func (d *Descriptor) fieldError(field, reason string, cause error) error {
	return &types.MarshallingError{
		Program: d.program,
		Field:   field,
		Reason:  reason,
		Cause:   cause,
	}
}

// toRat converts a supported numeric value into an exact rational. nil is zero.
func toRat(v any) (*big.Rat, bool) {
	switch val := v.(type) {
	case nil:
		return new(big.Rat), true
	case int:
		return new(big.Rat).SetInt64(int64(val)), true
	case int8:
		return new(big.Rat).SetInt64(int64(val)), true
	case int16:
		return new(big.Rat).SetInt64(int64(val)), true
	case int32:
		return new(big.Rat).SetInt64(int64(val)), true
	case int64:
		return new(big.Rat).SetInt64(val), true
	case uint:
		return new(big.Rat).SetUint64(uint64(val)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(val)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(val)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(val)), true
	case uint64:
		return new(big.Rat).SetUint64(val), true
	case float32:
		return new(big.Rat).SetString(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case float64:
		return new(big.Rat).SetString(strconv.FormatFloat(val, 'f', -1, 64))
	case string:
		return new(big.Rat).SetString(strings.TrimSpace(val))
	case []byte:
		return new(big.Rat).SetString(strings.TrimSpace(string(val)))
	default:
		return nil, false
	}
}

// scaleRound returns r * 10^decimals rounded half away from zero.
func scaleRound(r *big.Rat, decimals int) *big.Int {
	scaled := new(big.Rat).Mul(r, pow10(decimals))

	num := new(big.Int).Abs(scaled.Num())
	den := scaled.Denom()
	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Lsh(rem, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if scaled.Sign() < 0 {
		q.Neg(q)
	}

	return q
}

func pow10(n int) *big.Rat {
	return new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}
