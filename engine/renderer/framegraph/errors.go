package framegraph

import "errors"

// Graph validation errors. Compile wraps them with the offending pass or resource name.
var (
	// ErrNoPasses is returned by Compile when no pass has been declared.
	ErrNoPasses = errors.New("framegraph: no passes declared")

	// ErrNoOutput is returned by Compile when no output resource has been designated.
	ErrNoOutput = errors.New("framegraph: no output resource designated")

	// ErrCycle is returned by Compile when a pass transitively depends on its own output.
	ErrCycle = errors.New("framegraph: dependency cycle")

	// ErrInvalidGraph is returned by Execute when the graph has not been compiled successfully.
	ErrInvalidGraph = errors.New("framegraph: graph is not compiled")

	// ErrUnknownResource is returned when a handle or name does not refer to a declared resource.
	ErrUnknownResource = errors.New("framegraph: unknown resource")
)
