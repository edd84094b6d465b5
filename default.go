package bcolz

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

// encodeDefaultJSON renders an atom-sized default value for the "dflt"
// field of spec.md §6's storage schema. Numeric and boolean kinds render
// the atom's first scalar as a JSON number/bool, so an atom with trailing
// dimensions is written as a single scalar, not a list; everything else
// (byte strings, opaque records) is written as a base64 string of the
// whole atom.
func encodeDefaultJSON(typ dtype.Type, buf []byte) json.RawMessage {
	if len(buf) == 0 {
		return json.RawMessage("null")
	}
	switch typ.Kind {
	case dtype.Bool:
		v := buf[0] != 0
		raw, _ := json.Marshal(v)
		return raw
	case dtype.Int8:
		raw, _ := json.Marshal(int8(buf[0]))
		return raw
	case dtype.Uint8:
		raw, _ := json.Marshal(buf[0])
		return raw
	case dtype.Int16:
		raw, _ := json.Marshal(int16(binary.LittleEndian.Uint16(buf)))
		return raw
	case dtype.Uint16:
		raw, _ := json.Marshal(binary.LittleEndian.Uint16(buf))
		return raw
	case dtype.Int32:
		raw, _ := json.Marshal(int32(binary.LittleEndian.Uint32(buf)))
		return raw
	case dtype.Uint32:
		raw, _ := json.Marshal(binary.LittleEndian.Uint32(buf))
		return raw
	case dtype.Int64:
		raw, _ := json.Marshal(int64(binary.LittleEndian.Uint64(buf)))
		return raw
	case dtype.Uint64:
		raw, _ := json.Marshal(binary.LittleEndian.Uint64(buf))
		return raw
	case dtype.Float32:
		raw, _ := json.Marshal(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		return raw
	case dtype.Float64:
		raw, _ := json.Marshal(math.Float64frombits(binary.LittleEndian.Uint64(buf)))
		return raw
	default:
		raw, _ := json.Marshal(base64.StdEncoding.EncodeToString(buf))
		return raw
	}
}

// decodeDefaultJSON is the inverse of encodeDefaultJSON.
func decodeDefaultJSON(typ dtype.Type, raw json.RawMessage) []byte {
	buf := typ.Zero()
	if len(raw) == 0 || string(raw) == "null" {
		return buf
	}
	switch typ.Kind {
	case dtype.Bool:
		var v bool
		if json.Unmarshal(raw, &v) == nil && v {
			buf[0] = 1
		}
	case dtype.Int8, dtype.Uint8:
		var v int64
		if json.Unmarshal(raw, &v) == nil {
			buf[0] = byte(v)
		}
	case dtype.Int16, dtype.Uint16:
		var v int64
		if json.Unmarshal(raw, &v) == nil {
			binary.LittleEndian.PutUint16(buf, uint16(v))
		}
	case dtype.Int32, dtype.Uint32:
		var v int64
		if json.Unmarshal(raw, &v) == nil {
			binary.LittleEndian.PutUint32(buf, uint32(v))
		}
	case dtype.Int64, dtype.Uint64:
		var v int64
		if json.Unmarshal(raw, &v) == nil {
			binary.LittleEndian.PutUint64(buf, uint64(v))
		}
	case dtype.Float32:
		var v float32
		if json.Unmarshal(raw, &v) == nil {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		}
	case dtype.Float64:
		var v float64
		if json.Unmarshal(raw, &v) == nil {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		}
	default:
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
				copy(buf, decoded)
			}
		}
	}
	return buf
}
