package sql

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/sqlgate/types"
)

// temporalDefaults holds the display precision and fractional scale reported
// for temporal types declared without explicit size arguments.
var temporalDefaults = map[string][2]int{
	"DATE":      {10, 0},
	"TIME":      {8, 0},
	"TIMESTAMP": {26, 6},
	"DATETIME":  {26, 6},
}

// ColumnMetadataFromTypes converts driver column types into ColumnMetadata.
//
// Size information reported by the driver (DecimalSize, Length) wins over
// arguments parsed from the declared type name.
//
// Parameters:
//   - colTypes: Column types from (*sql.Rows).ColumnTypes
//
// Returns:
//   - []types.ColumnMetadata: One entry per column, in order
func ColumnMetadataFromTypes(colTypes []*sql.ColumnType) []types.ColumnMetadata {
	meta := make([]types.ColumnMetadata, len(colTypes))
	for i, ct := range colTypes {
		m := ParseDeclaredType(ct.DatabaseTypeName())
		m.Name = ct.Name()

		if precision, scale, ok := ct.DecimalSize(); ok {
			m.Precision = clampInt(precision)
			m.Scale = clampInt(scale)
		} else if length, ok := ct.Length(); ok && length > 0 && length < math.MaxInt32 {
			m.Precision = int(length)
		}

		meta[i] = m
	}

	return meta
}

// ParseDeclaredType splits a declared SQL type such as "DECIMAL(15, 0)" or
// "varchar(300)" into an upper-case type name, precision and scale.
//
// Types without size arguments get zero precision and scale, except temporal
// types which report their conventional display width.
//
// Parameters:
//   - declared: The declared type text
//
// Returns:
//   - types.ColumnMetadata: Metadata with TypeName, Precision and Scale set
func ParseDeclaredType(declared string) types.ColumnMetadata {
	declared = strings.TrimSpace(declared)

	open := strings.IndexByte(declared, '(')
	if open < 0 {
		name := strings.ToUpper(declared)
		m := types.ColumnMetadata{TypeName: name}
		if d, ok := temporalDefaults[name]; ok {
			m.Precision, m.Scale = d[0], d[1]
		}

		return m
	}

	m := types.ColumnMetadata{TypeName: strings.ToUpper(strings.TrimSpace(declared[:open]))}

	closeIdx := strings.IndexByte(declared[open:], ')')
	if closeIdx < 0 {
		return m
	}

	args := strings.Split(declared[open+1:open+closeIdx], ",")
	if len(args) > 0 {
		if p, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
			m.Precision = p
		}
	}
	if len(args) > 1 {
		if s, err := strconv.Atoi(strings.TrimSpace(args[1])); err == nil {
			m.Scale = s
		}
	}

	return m
}

func clampInt(v int64) int {
	if v < 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}

	return int(v)
}
