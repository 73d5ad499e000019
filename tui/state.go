package tui

type state int

const (
	loadingState state = iota
	controlsState
	endedState
	errorState
)
