package rpc

import (
	"context"
	"encoding/json"

	"github.com/halowlab/halowdiag/internal/errors"
)

// Method describes a remote ubus method.
type Method struct {
	Object string
	Method string

	// Params names the positional arguments of the declared function.
	Params []string

	// Expect, when set, unwraps this key from the result object.
	Expect string

	// Reject propagates errors to the caller. When false, failures are
	// logged and the call resolves with the zero value.
	Reject bool
}

// args maps positional values onto the declared parameter names.
// Nil values and values beyond the declared names are left out.
func (m Method) args(values []any) map[string]any {
	out := make(map[string]any, len(m.Params))
	for i, name := range m.Params {
		if i >= len(values) || values[i] == nil {
			continue
		}
		out[name] = values[i]
	}
	return out
}

// Declare binds m to c and returns a typed function calling it.
// The result is decoded into T.
func Declare[T any](c *Client, m Method) func(ctx context.Context, args ...any) (T, error) {
	return func(ctx context.Context, args ...any) (T, error) {
		var out T

		raw, err := c.invoke(ctx, m, m.args(args))
		if err == nil && !isNull(raw) {
			if uerr := json.Unmarshal(raw, &out); uerr != nil {
				var zero T
				out = zero
				err = errors.WrapWithCode(uerr, errors.ErrParse,
					"Unexpected result from "+m.Object+"/"+m.Method,
					"The device firmware may be newer or older than expected.")
			}
		}

		if err != nil {
			if m.Reject {
				return out, err
			}
			c.log.Debug("rpc %s/%s failed, using default: %v", m.Object, m.Method, err)
			var zero T
			return zero, nil
		}
		return out, nil
	}
}
