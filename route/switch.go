package route

// Rule binds a pattern to a target selected when the pattern matches.
type Rule[T any] struct {
	Pattern Pattern

	// Exact requires the pattern to consume the whole path.
	Exact bool

	// Sensitive enables case-sensitive comparison of literal segments.
	Sensitive bool

	Target T
}

// Selection is the outcome of Select.
type Selection[T any] struct {
	// Index is the position of the selected rule in the evaluated list.
	Index int

	Rule  Rule[T]
	Match Match
}

// Select evaluates rules in order and returns the first one matching urlPath. Later rules are
// not evaluated once a match is found.
func Select[T any](rules []Rule[T], urlPath string) (Selection[T], bool) {
	for i, r := range rules {
		if m, ok := r.Pattern.Match(urlPath, r.Exact, r.Sensitive); ok {
			return Selection[T]{Index: i, Rule: r, Match: m}, true
		}
	}
	return Selection[T]{Index: -1}, false
}

// Switch is an ordered list of rules with first-match-wins selection.
type Switch[T any] struct {
	rules []Rule[T]
}

// NewSwitch creates a Switch evaluating rules in the given order.
func NewSwitch[T any](rules ...Rule[T]) *Switch[T] {
	return &Switch[T]{rules: rules}
}

// Handle compiles pattern and appends a rule for target.
func (s *Switch[T]) Handle(pattern string, exact bool, target T) error {
	p, err := Compile(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, Rule[T]{Pattern: p, Exact: exact, Target: target})
	return nil
}

// Rules returns a copy of the registered rules.
func (s *Switch[T]) Rules() []Rule[T] {
	rules := make([]Rule[T], len(s.rules))
	copy(rules, s.rules)
	return rules
}

// Select returns the first rule matching urlPath.
func (s *Switch[T]) Select(urlPath string) (Selection[T], bool) {
	return Select(s.rules, urlPath)
}
