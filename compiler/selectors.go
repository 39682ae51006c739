package compiler

import (
	"fmt"
	"sync"
)

// SelectorTable assigns short stable aliases to custom-element selectors.
// One table is constructed per build and threaded through generation, so
// alias assignment depends only on first-request order, never on ambient
// state.
type SelectorTable struct {
	mu     sync.Mutex
	byName map[string]string
	order  []string
}

func NewSelectorTable() *SelectorTable {
	return &SelectorTable{byName: make(map[string]string)}
}

// Alias returns the short name for selector, assigning the next one on
// first sight. Aliases keep a dash so they stay valid custom-element
// names.
func (t *SelectorTable) Alias(selector string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if alias, ok := t.byName[selector]; ok {
		return alias
	}
	alias := fmt.Sprintf("c-%d", len(t.order))
	t.byName[selector] = alias
	t.order = append(t.order, selector)
	return alias
}

// Pairs lists selector/alias assignments in assignment order.
func (t *SelectorTable) Pairs() [][2]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	pairs := make([][2]string, 0, len(t.order))
	for _, sel := range t.order {
		pairs = append(pairs, [2]string{sel, t.byName[sel]})
	}
	return pairs
}

func (t *SelectorTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}
