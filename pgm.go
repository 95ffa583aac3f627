package sqlgate

import (
	"context"

	"github.com/arloliu/sqlgate/program"
	"github.com/arloliu/sqlgate/types"
)

// ProgramFunc calls a bound program with an input record.
type ProgramFunc func(ctx context.Context, in program.Record) *Future[program.Record]

// Pgm binds a program and its record layout.
//
// Each call encodes the input into the fixed-format record before any worker
// or transport is involved, so an overflowing or mistyped field resolves to a
// *types.MarshallingError without invoking the program. The record returned
// by the program is decoded with the same layout.
//
// Parameters:
//   - name: The program name passed to the configured program.Caller
//   - fields: The record layout, in order
//
// Returns:
//   - ProgramFunc: The callable; an invalid layout makes every call fail
//
// Example:
//
//	tax := client.Pgm("CALCTAX",
//	    program.Char("STATE", 2),
//	    program.Decimal("AMOUNT", 9, 2),
//	    program.Decimal("TAX", 9, 2),
//	)
//	out, err := tax(ctx, program.Record{"STATE": "CA", "AMOUNT": 120.0}).Get()
func (c *Client) Pgm(name string, fields ...program.Field) ProgramFunc {
	d, descErr := program.NewDescriptor(name, fields...)
	caller := c.config.ProgramCaller
	logger := c.config.Logger

	return func(ctx context.Context, in program.Record) *Future[program.Record] {
		if descErr != nil {
			return failed[program.Record](descErr)
		}
		if c.closed.Load() {
			return failed[program.Record](types.ErrClientClosed)
		}

		record, err := d.Encode(in)
		if err != nil {
			c.config.Metrics.IncOperationError(types.OpProgram)
			return failed[program.Record](err)
		}

		return submit(ctx, c.gw, types.OpProgram, func(ctx context.Context) (program.Record, error) {
			out, err := caller.Call(ctx, name, record)
			if err != nil {
				logger.Warn("program call failed",
					"program", name,
					"error", err.Error(),
				)

				return nil, err
			}

			return d.Decode(out)
		})
	}
}
