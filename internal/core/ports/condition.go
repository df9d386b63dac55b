package ports

// ConditionContext supplies the values a condition expression may reference:
// platform flags, environment variables, and resolved toolchain versions.
type ConditionContext struct {
	// Platform is one of "linux", "darwin", "windows" (mirrors runtime.GOOS).
	Platform string
	// Env holds the environment variables visible to the evaluator. A
	// missing key evaluates to the empty string, never an error.
	Env map[string]string
	// ToolchainVersions maps a toolchain alias (e.g. "go", "node") to its
	// resolved version string, for toolchain.<name>.version lookups.
	ToolchainVersions map[string]string
}

// ConditionEvaluator evaluates a task's boolean condition expression
// against a ConditionContext. A parse failure is returned as an error; an
// unresolved identifier referenced at evaluation time never errors (it
// resolves to its type's zero value).
//
//go:generate go run go.uber.org/mock/mockgen -source=condition.go -destination=mocks/mock_condition.go -package=mocks
type ConditionEvaluator interface {
	Evaluate(expr string, ctx ConditionContext) (bool, error)
}
