package program

import "github.com/tinylib/msgp/msgp"

// callEnvelope is the MessagePack message exchanged between NATSCaller and
// NATSServer. Requests carry Program and Record; replies carry Record or
// Error and Code.
type callEnvelope struct {
	Program string `msg:"program"`
	Record  []byte `msg:"record"`
	Error   string `msg:"error"`
	Code    string `msg:"code"`
}

// Reply codes.
const (
	codeOK             = ""
	codeFailed         = "failed"
	codeUnknownProgram = "unknown_program"
	codeMarshalling    = "marshalling"
)

// MarshalMsg implements msgp.Marshaler.
func (e *callEnvelope) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, e.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "program")
	o = msgp.AppendString(o, e.Program)
	o = msgp.AppendString(o, "record")
	o = msgp.AppendBytes(o, e.Record)
	o = msgp.AppendString(o, "error")
	o = msgp.AppendString(o, e.Error)
	o = msgp.AppendString(o, "code")
	o = msgp.AppendString(o, e.Code)

	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (e *callEnvelope) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, msgp.WrapError(err)
	}

	for ; sz > 0; sz-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return bts, msgp.WrapError(err)
		}

		switch msgp.UnsafeString(field) {
		case "program":
			e.Program, bts, err = msgp.ReadStringBytes(bts)
		case "record":
			e.Record, bts, err = msgp.ReadBytesBytes(bts, e.Record[:0])
		case "error":
			e.Error, bts, err = msgp.ReadStringBytes(bts)
		case "code":
			e.Code, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, msgp.WrapError(err, string(field))
		}
	}

	return bts, nil
}

// Msgsize returns an upper bound on the encoded size.
func (e *callEnvelope) Msgsize() int {
	return msgp.MapHeaderSize +
		msgp.StringPrefixSize + len("program") + msgp.StringPrefixSize + len(e.Program) +
		msgp.StringPrefixSize + len("record") + msgp.BytesPrefixSize + len(e.Record) +
		msgp.StringPrefixSize + len("error") + msgp.StringPrefixSize + len(e.Error) +
		msgp.StringPrefixSize + len("code") + msgp.StringPrefixSize + len(e.Code)
}
