package internal

// Scope counts nested entries into a dispatcher context.
type Scope struct {
	// each nested entry increases the depth by 1
	// work posted while depth > 0 runs when the outermost entry completes
	depth int
}

func NewScope() *Scope {
	return &Scope{
		depth: 0,
	}
}

func (s *Scope) Active() bool {
	return s.depth > 0
}

func (s *Scope) Depth() int {
	return s.depth
}

// Run calls fn inside the scope. onOutermostExit runs only when fn returned normally
// from the outermost entry, still inside the scope so it may post more work.
func (s *Scope) Run(fn, onOutermostExit func()) {
	s.depth++
	defer func() { s.depth-- }()

	fn()

	if s.depth == 1 && onOutermostExit != nil {
		onOutermostExit()
	}
}
