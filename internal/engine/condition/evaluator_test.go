package condition_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zr/internal/engine/condition"
	"go.trai.ch/zr/internal/core/ports"
)

func TestEvaluator_EmptyExpressionAlwaysRuns(t *testing.T) {
	e := condition.NewEvaluator()
	ok, err := e.Evaluate("", ports.ConditionContext{})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_PlatformChecks(t *testing.T) {
	e := condition.NewEvaluator()
	ctx := ports.ConditionContext{Platform: "linux"}

	ok, err := e.Evaluate("platform.is_linux", ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Evaluate("platform.is_windows", ctx)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = e.Evaluate("platform.is_unix", ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_EnvLookup(t *testing.T) {
	e := condition.NewEvaluator()
	ctx := ports.ConditionContext{Env: map[string]string{"CI": "true"}}

	ok, err := e.Evaluate(`env.CI == "true"`, ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Evaluate(`env.MISSING == ""`, ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_LogicalOperators(t *testing.T) {
	e := condition.NewEvaluator()
	ctx := ports.ConditionContext{Platform: "darwin", Env: map[string]string{"CI": "false"}}

	ok, err := e.Evaluate(`platform.is_macos && env.CI == "false"`, ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Evaluate(`platform.is_windows || platform.is_macos`, ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Evaluate(`!platform.is_windows`, ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_SemverComparison(t *testing.T) {
	e := condition.NewEvaluator()
	ctx := ports.ConditionContext{ToolchainVersions: map[string]string{"go": "1.9.0"}}

	ok, err := e.Evaluate(`toolchain.go.version < "1.10.0"`, ctx)
	require.NoError(t, err)
	require.True(t, ok, "semver compare must treat 1.9.0 < 1.10.0, not lexicographic")

	ok, err = e.Evaluate(`toolchain.go.version >= "1.9.0"`, ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_NumericComparison(t *testing.T) {
	e := condition.NewEvaluator()
	ctx := ports.ConditionContext{Env: map[string]string{"N": "42"}}

	ok, err := e.Evaluate(`env.N > "7"`, ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_StringFallbackComparison(t *testing.T) {
	e := condition.NewEvaluator()
	ctx := ports.ConditionContext{Env: map[string]string{"NAME": "zebra"}}

	ok, err := e.Evaluate(`env.NAME > "apple"`, ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_Parens(t *testing.T) {
	e := condition.NewEvaluator()
	ctx := ports.ConditionContext{Platform: "linux", Env: map[string]string{"CI": "true"}}

	ok, err := e.Evaluate(`(platform.is_linux || platform.is_macos) && env.CI == "true"`, ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluator_ParseErrorOnMalformedExpression(t *testing.T) {
	e := condition.NewEvaluator()
	_, err := e.Evaluate(`platform.is_linux &&`, ports.ConditionContext{})
	require.Error(t, err)
}

func TestEvaluator_UnresolvedIdentifierNeverErrors(t *testing.T) {
	e := condition.NewEvaluator()
	ok, err := e.Evaluate(`some.unknown.path`, ports.ConditionContext{})
	require.NoError(t, err)
	require.False(t, ok)
}
