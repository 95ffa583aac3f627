package sqlgate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/arloliu/sqlgate/types"
)

// renderRow converts driver values into their string form for streaming.
// SQL NULL stays nil.
func renderRow(row types.Row, meta []types.ColumnMetadata) types.Row {
	out := make(types.Row, len(row))
	for i, v := range row {
		typeName := ""
		if i < len(meta) {
			typeName = meta[i].TypeName
		}
		out[i] = renderValue(v, typeName)
	}

	return out
}

func renderValue(v any, typeName string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		switch typeName {
		case "DATE":
			return val.Format(time.DateOnly)
		case "TIME":
			return val.Format(time.TimeOnly)
		default:
			return val.Format(time.RFC3339Nano)
		}
	default:
		return fmt.Sprint(val)
	}
}

// recordValue normalizes a driver value for an eagerly materialized record.
// Text returned as []byte becomes a string; other values keep their driver type.
func recordValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}

	return v
}

// toRecords keys each row by column label.
func toRecords(rows []types.Row, meta []types.ColumnMetadata) []types.Record {
	records := make([]types.Record, len(rows))
	for i, row := range rows {
		rec := make(types.Record, len(meta))
		for j, col := range meta {
			if j < len(row) {
				rec[col.Name] = recordValue(row[j])
			}
		}
		records[i] = rec
	}

	return records
}

// toInt64 converts a generated key or size value to int64.
func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > 1<<63-1 {
			return 0, false
		}

		return int64(val), true
	case float64:
		if val != float64(int64(val)) {
			return 0, false
		}

		return int64(val), true
	case []byte:
		n, err := strconv.ParseInt(string(val), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// toText converts a rendered or driver value to a string; nil becomes "".
func toText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := renderValue(v, "").(string); ok {
		return s
	}

	return fmt.Sprint(v)
}
