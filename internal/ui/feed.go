package ui

import tea "github.com/charmbracelet/bubbletea"

// Feed carries views from the dispatch loop to a screen. Publish never
// blocks: a view the screen has not picked up yet is replaced by the newer
// one.
type Feed[T any] struct {
	ch chan T
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{ch: make(chan T, 1)}
}

// Publish offers v to the screen.
func (f *Feed[T]) Publish(v T) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

type viewMsg[T any] struct{ view T }

// next waits for the following view.
func (f *Feed[T]) next() tea.Cmd {
	return func() tea.Msg {
		return viewMsg[T]{view: <-f.ch}
	}
}
