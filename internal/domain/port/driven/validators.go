package driven

import "context"

// ConfigValidator defines the driven port for checking that stored
// configuration is complete enough to run a workflow. A nil return means the
// configuration is valid.
type ConfigValidator interface {
	Validate(ctx context.Context) error
}

// ModelAvailability defines the driven port for probing whether the analysis
// engine's model is reachable.
type ModelAvailability interface {
	Check(ctx context.Context) (bool, error)
}
