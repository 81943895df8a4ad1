package generator

// Generator tuning constants are centralized here to avoid scattering magic numbers.
// Probabilities are fractions in [0,1].

const (
	// DefaultMaxRetries bounds the attempts spent on a single query.
	DefaultMaxRetries = 1000
	// DefaultLengthMax is the label bound per conjunct when a workload leaves it unset.
	DefaultLengthMax = 3
	// ProgressSteps is how many progress callbacks a workload run emits.
	ProgressSteps = 10
)

const (
	// ParallelLabelProb is the chance to combine a label with a parallel one.
	ParallelLabelProb = 0.15
	// IdentityLoopProb is the chance to intersect a CPQ loop segment with id.
	IdentityLoopProb = 0.25
	// KleeneLoopProb is the chance to close an RPQ loop segment under Kleene star.
	KleeneLoopProb = 0.3
	// BranchTargetTries caps the targets tried for a free branch.
	BranchTargetTries = 8
)
