package superscript

import "github.com/google/cel-go/cel"

// sourceEnv is a minimal cel.Env used only for parsing expression text
// into Superscript's local Expr tree (parseCELSource, celconv.go). It
// carries none of the per-evaluation variable/builtin declarations —
// those only matter once the rewritten AST is compiled and run in
// runEvaluation's own freshly-built env — so a single shared instance is
// safe to reuse across calls.
var sourceEnv = mustBuildSourceEnv()

func mustBuildSourceEnv() *cel.Env {
	env, err := cel.NewEnv()
	if err != nil {
		panic("superscript: failed to build source-parsing environment: " + err.Error())
	}
	return env
}

// EvaluateWithContext implements spec §6's evaluate_with_context: parse
// the envelope's text expression, normalize, rewrite for null-safety, and
// evaluate against bridge. Returns the serialized result envelope either
// way — parse/envelope/bridge failures serialize as {"Err": ...} rather
// than being returned as a Go error, matching the "result_json" contract.
func EvaluateWithContext(envelopeJSON []byte, bridge Bridge) []byte {
	ctx, err := ParseEnvelope(envelopeJSON)
	if err != nil {
		return ErrorEnvelope(err)
	}
	if ctx.Expression == "" {
		return ErrorEnvelope(newEnvelopeError("envelope missing required expression"))
	}

	parsed, err := parseCELSource(sourceEnv, ctx.Expression)
	if err != nil {
		return ErrorEnvelope(err)
	}

	return evaluateParsed(ctx, parsed, bridge)
}

// EvaluateASTWithContext implements evaluate_ast_with_context: the
// envelope carries a pre-parsed ast_json instead of expression text.
func EvaluateASTWithContext(envelopeJSON []byte, bridge Bridge) []byte {
	ctx, err := ParseEnvelope(envelopeJSON)
	if err != nil {
		return ErrorEnvelope(err)
	}
	if len(ctx.AST) == 0 {
		return ErrorEnvelope(newEnvelopeError("envelope missing required ast"))
	}

	parsed, err := ParseASTJSON(ctx.AST)
	if err != nil {
		return ErrorEnvelope(err)
	}

	return evaluateParsed(ctx, parsed, bridge)
}

// EvaluateAST implements evaluate_ast: no bridge is supplied, so every
// dynamic call is treated as absent and degrades per §4.4 (see
// buildDeclaredNames).
func EvaluateAST(envelopeJSON []byte) []byte {
	return EvaluateASTWithContext(envelopeJSON, nil)
}

// ParseToAST implements parse_to_ast: parse only, returning ast_json.
func ParseToAST(expressionText string) ([]byte, error) {
	parsed, err := parseCELSource(sourceEnv, expressionText)
	if err != nil {
		return nil, err
	}
	return parsed.MarshalJSON()
}

// RewriteExpression parses expressionText, normalizes its literal atoms,
// applies the null-safety rewrite (spec §4.4), and unparses the result back
// to CEL source text. It performs no evaluation; it exists for tooling and
// debugging (the CLI's `rewrite` subcommand) so the rewrite's effect on a
// given expression can be inspected directly.
func RewriteExpression(expressionText string) (string, error) {
	parsed, err := parseCELSource(sourceEnv, expressionText)
	if err != nil {
		return "", err
	}
	normalized := NormalizeASTLiterals(parsed)
	rewritten := RewriteNullSafety(normalized)
	return rewritten.String(), nil
}

// evaluateParsed normalizes the AST's literal atoms, rewrites for
// null-safety, evaluates, and serializes the outcome.
func evaluateParsed(ctx *ExecutionContext, parsed *Expr, bridge Bridge) []byte {
	normalized := NormalizeASTLiterals(parsed)
	rewritten := RewriteNullSafety(normalized)

	result, err := runEvaluation(ctx, rewritten, bridge)
	if err != nil {
		return ErrorEnvelope(err)
	}

	out, err := ResultEnvelope(result)
	if err != nil {
		return ErrorEnvelope(err)
	}
	return out
}
