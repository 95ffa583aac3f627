// Package program marshals fixed-format program-call records.
//
// A program call passes a single flat record to a remote program and reads
// the (possibly modified) record back. The record layout is described by an
// ordered list of [Field] values: character fields are left-justified and
// space padded; numeric fields are zoned decimal text, right-justified and
// zero filled, with Decimals implied fractional digits.
//
// # Layout
//
//	fields := []program.Field{
//	    program.Char("NAME", 10),
//	    program.Decimal("AMOUNT", 7, 2),
//	}
//	d, _ := program.NewDescriptor("CALCTAX", fields...)
//	buf, _ := d.Encode(program.Record{"NAME": "Foo", "AMOUNT": 12.5})
//	// buf == "Foo       0001250"
//
// A value that does not fit its declared size is rejected with a
// *types.MarshallingError wrapping types.ErrFieldOverflow; nothing is truncated.
//
// # Callers
//
// A [Caller] moves encoded records to a program and back:
//
//   - [LoopbackCaller]: Returns the record unchanged (in-memory mode default)
//   - [LocalCaller]: Dispatches to in-process handlers by program name
//   - [NATSCaller]: NATS request/reply to a remote [NATSServer]
package program
