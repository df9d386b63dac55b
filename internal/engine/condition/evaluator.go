// Package condition implements a small boolean expression language used for
// a task's conditional-execution gate: platform checks, environment variable
// comparisons, and toolchain version comparisons.
package condition

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zr/internal/core/ports"
)

// Evaluator implements ports.ConditionEvaluator.
type Evaluator struct{}

// NewEvaluator creates a new condition Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

var _ ports.ConditionEvaluator = (*Evaluator)(nil)

// Evaluate parses and evaluates expr against ctx. A parse failure is
// returned as an error; evaluation itself is total.
func (e *Evaluator) Evaluate(expr string, ctx ports.ConditionContext) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	n, err := parse(expr)
	if err != nil {
		return false, err
	}
	return n.eval(evalContext{ctx: ctx}).truthy(), nil
}

// evalContext adapts a ports.ConditionContext into identifier resolution
// for the AST. Every lookup is total: an unresolved identifier evaluates to
// the empty string / false, never an error.
type evalContext struct {
	ctx ports.ConditionContext
}

func (e evalContext) resolve(path string) value {
	switch {
	case path == "platform.is_linux":
		return boolValue(e.ctx.Platform == "linux")
	case path == "platform.is_macos":
		return boolValue(e.ctx.Platform == "darwin")
	case path == "platform.is_windows":
		return boolValue(e.ctx.Platform == "windows")
	case path == "platform.is_unix":
		return boolValue(e.ctx.Platform == "linux" || e.ctx.Platform == "darwin")
	case strings.HasPrefix(path, "env."):
		name := strings.TrimPrefix(path, "env.")
		return stringValue(e.ctx.Env[name])
	case strings.HasPrefix(path, "toolchain.") && strings.HasSuffix(path, ".version"):
		name := strings.TrimSuffix(strings.TrimPrefix(path, "toolchain."), ".version")
		return stringValue(e.ctx.ToolchainVersions[name])
	default:
		return stringValue("")
	}
}

// compare evaluates a binary comparison between two values. When both
// operands parse as semantic versions, the comparison is semantic
// (1.9.0 < 1.10.0); when both parse as plain numbers, it is numeric;
// otherwise it falls back to lexicographic string comparison.
func compare(op tokenKind, l, r value) bool {
	if op == tokEq || op == tokNeq {
		eq := rawString(l) == rawString(r)
		if op == tokNeq {
			return !eq
		}
		return eq
	}

	if lv, rv, ok := asSemver(l, r); ok {
		c := lv.Compare(rv)
		return applyOrdering(op, c)
	}
	if lf, rf, ok := asNumber(l, r); ok {
		switch {
		case lf < rf:
			return applyOrdering(op, -1)
		case lf > rf:
			return applyOrdering(op, 1)
		default:
			return applyOrdering(op, 0)
		}
	}
	return applyOrdering(op, strings.Compare(rawString(l), rawString(r)))
}

func applyOrdering(op tokenKind, cmp int) bool {
	switch op {
	case tokLt:
		return cmp < 0
	case tokLte:
		return cmp <= 0
	case tokGt:
		return cmp > 0
	case tokGte:
		return cmp >= 0
	default:
		return false
	}
}

func rawString(v value) string {
	if v.isBool {
		if v.boolVal {
			return "true"
		}
		return "false"
	}
	return v.strVal
}

func asSemver(l, r value) (*semver.Version, *semver.Version, bool) {
	if l.isBool || r.isBool {
		return nil, nil, false
	}
	lv, err1 := semver.NewVersion(l.strVal)
	rv, err2 := semver.NewVersion(r.strVal)
	if err1 != nil || err2 != nil {
		return nil, nil, false
	}
	return lv, rv, true
}

func asNumber(l, r value) (float64, float64, bool) {
	if l.isBool || r.isBool {
		return 0, 0, false
	}
	lf, err1 := strconv.ParseFloat(l.strVal, 64)
	rf, err2 := strconv.ParseFloat(r.strVal, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lf, rf, true
}
