package review

// resolvedMsg reports a verdict persisted to storage.
type resolvedMsg struct {
	index    int
	decision Decision
}

// errorMsg surfaces a failed resolve without leaving the screen.
type errorMsg struct {
	err error
}
