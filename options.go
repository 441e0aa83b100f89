package superscript

// Option configures an Evaluator, following the same functional-options
// shape the teacher's FlagEvaluator uses (Option func(*evaluatorConfig)).
type Option func(*evaluatorConfig)

type evaluatorConfig struct {
	permissiveValidation bool
	maxCallArity         int
	bridge               Bridge
}

func defaultConfig() *evaluatorConfig {
	return &evaluatorConfig{maxCallArity: 2}
}

// WithPermissiveValidation sets the permissiveValidation flag; kept for
// symmetry with the teacher's option of the same name. Nothing reads the
// flag: ParseEnvelope defaults missing computed/device to empty whether or
// not it is set, so the option has no effect on evaluation.
func WithPermissiveValidation() Option {
	return func(c *evaluatorConfig) { c.permissiveValidation = true }
}

// WithMaxCallArity stores n as the configured maximum argument count for
// dynamic device/computed calls (default 2). The value is not consulted
// when registering overloads: dynamicFunctionOverloads always registers the
// 0-, 1- and 2-argument forms, whatever n is.
func WithMaxCallArity(n int) Option {
	return func(c *evaluatorConfig) { c.maxCallArity = n }
}

// WithBridge supplies the default Bridge used by Evaluator methods that
// don't take one explicitly.
func WithBridge(b Bridge) Option {
	return func(c *evaluatorConfig) { c.bridge = b }
}

// Evaluator bundles a default Bridge and configuration, for embedders that
// want a long-lived handle rather than passing a bridge on every call (the
// four package-level functions in api.go are the stateless equivalent and are
// what spec §6 names directly).
type Evaluator struct {
	cfg *evaluatorConfig
}

// NewEvaluator builds an Evaluator from the supplied Options.
func NewEvaluator(opts ...Option) *Evaluator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.build()
}

func (c *evaluatorConfig) build() *Evaluator { return &Evaluator{cfg: c} }

// EvaluateWithContext evaluates the envelope using the Evaluator's default
// bridge.
func (e *Evaluator) EvaluateWithContext(envelopeJSON []byte) []byte {
	return EvaluateWithContext(envelopeJSON, e.cfg.bridge)
}

// EvaluateASTWithContext evaluates ast_json using the Evaluator's default
// bridge.
func (e *Evaluator) EvaluateASTWithContext(astEnvelopeJSON []byte) []byte {
	return EvaluateASTWithContext(astEnvelopeJSON, e.cfg.bridge)
}
