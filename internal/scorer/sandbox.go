package scorer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

// sandboxTimeout is the hard wall-clock budget for a metric's JavaScript
// body (spec.md section 4.6). It is independent of the caller's context
// deadline: the timer always fires, even if ctx is never cancelled.
const sandboxTimeout = 5 * time.Second

// shadowedIdentifiers are bound to undefined in the wrapper function's
// argument list so user code referencing them sees undefined rather than a
// real global (spec.md section 4.6). This is advisory containment, not a
// security boundary: a determined script can still reach the host process
// through goja's reflection-based Go interop if one is ever exposed, which
// is why nothing beyond these scalar args is registered on the runtime.
var shadowedIdentifiers = []string{
	"global", "require", "process", "eval", "Function",
	"setTimeout", "setInterval", "fetch", "XMLHttpRequest",
	"File", "WebSocket", "Buffer",
}

// runJavaScript evaluates a metric's code body as an async function of
// (output, example), enforcing the 5-second timeout and coercing the
// settled value to a finite float64 (spec.md section 4.6).
func runJavaScript(ctx context.Context, code string, output, example any) (float64, error) {
	vm := goja.New()

	timer := time.AfterFunc(sandboxTimeout, func() {
		vm.Interrupt("javascript metric: execution timed out")
	})
	defer timer.Stop()

	wrapped := fmt.Sprintf(`(function(output, example, %s) {
  return (async function(output, example) {
%s
  })(output, example);
})`, joinShadowed(), code)

	program, err := goja.Compile("metric.js", wrapped, false)
	if err != nil {
		return 0, fmt.Errorf("javascript metric: compile: %w", err)
	}

	fnValue, err := vm.RunProgram(program)
	if err != nil {
		return 0, fmt.Errorf("javascript metric: %w", wrapInterrupt(err))
	}

	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return 0, fmt.Errorf("javascript metric: code did not evaluate to a function")
	}

	args := make([]goja.Value, 0, 2+len(shadowedIdentifiers))
	args = append(args, vm.ToValue(output), vm.ToValue(example))
	for range shadowedIdentifiers {
		args = append(args, goja.Undefined())
	}

	result, err := fn(goja.Undefined(), args...)
	if err != nil {
		return 0, fmt.Errorf("javascript metric: %w", wrapInterrupt(err))
	}

	value, err := resolveResult(vm, result)
	if err != nil {
		return 0, err
	}

	return coerceFinite(value)
}

// resolveResult drains an async function's returned Promise to its settled
// value. goja resolves promises whose continuations involve no real
// asynchronous I/O by the time the call that produced them returns, since
// this sandbox never exposes timers or network access to user code.
func resolveResult(vm *goja.Runtime, v goja.Value) (goja.Value, error) {
	promise, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}

	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return promise.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("javascript metric: rejected: %s", promise.Result().String())
	default:
		return nil, fmt.Errorf("javascript metric: did not settle synchronously")
	}
}

// coerceFinite applies spec.md section 4.6's "result is coerced with
// numeric parsing; non-finite results fail the metric" rule.
func coerceFinite(v goja.Value) (float64, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, fmt.Errorf("javascript metric: result is not a number")
	}

	var f float64
	switch exported := v.Export().(type) {
	case float64:
		f = exported
	case int64:
		f = float64(exported)
	case string:
		parsed, err := strconv.ParseFloat(exported, 64)
		if err != nil {
			return 0, fmt.Errorf("javascript metric: result %q is not numeric", exported)
		}
		f = parsed
	default:
		f = v.ToFloat()
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("javascript metric: result is not finite")
	}
	return f, nil
}

func wrapInterrupt(err error) error {
	if _, ok := err.(*goja.InterruptedError); ok {
		return fmt.Errorf("execution exceeded %s: %w", sandboxTimeout, err)
	}
	return err
}

func joinShadowed() string {
	out := ""
	for i, name := range shadowedIdentifiers {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}
