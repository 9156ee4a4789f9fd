// SPDX-License-Identifier: MPL-2.0

package action

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/nbuild/nbuild/internal/dag"
	"github.com/nbuild/nbuild/internal/fsitem"
)

const (
	// KindCompile turns one source file into an object file.
	KindCompile Kind = iota
	// KindLink produces a binary.
	KindLink
	// KindImportLibrary produces only the import library of a binary.
	KindImportLibrary
	// KindPostBuild runs after an executable is linked.
	KindPostBuild
	// KindCopy stages a file; it has no command.
	KindCopy
)

// ErrDuplicateProducer is the sentinel wrapped by DuplicateProducerError.
var ErrDuplicateProducer = errors.New("file produced by more than one action")

type (
	// Kind classifies an action.
	Kind int

	// Action is one build step.
	Action struct {
		Kind        Kind
		Description string
		// Command is a shell script run with Args as positional parameters.
		Command string
		Env     map[string]string
		Args    []string
		Inputs  []*fsitem.FileItem
		Outputs []*fsitem.FileItem

		id int
	}

	// Graph is the set of planned actions. It is safe for concurrent use.
	Graph struct {
		mu        sync.Mutex
		actions   []*Action
		producers map[*fsitem.FileItem]*Action
	}

	// DuplicateProducerError is returned when two actions declare the same
	// output.
	DuplicateProducerError struct {
		File          string
		First, Second string
	}
)

func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "Compile"
	case KindLink:
		return "Link"
	case KindImportLibrary:
		return "ImportLibrary"
	case KindPostBuild:
		return "PostBuild"
	case KindCopy:
		return "Copy"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// EnvList returns Env as sorted KEY=VALUE pairs.
func (a *Action) EnvList() []string {
	keys := slices.Sorted(maps.Keys(a.Env))
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + a.Env[k]
	}
	return out
}

func (a *Action) String() string { return a.Description }

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{producers: make(map[*fsitem.FileItem]*Action)}
}

// Add appends a. It fails when an output of a already has a producer.
func (g *Graph) Add(a *Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, out := range a.Outputs {
		if existing, ok := g.producers[out]; ok {
			return &DuplicateProducerError{File: out.Path(), First: existing.Description, Second: a.Description}
		}
	}
	a.id = len(g.actions)
	g.actions = append(g.actions, a)
	for _, out := range a.Outputs {
		g.producers[out] = a
	}
	return nil
}

// Actions returns the actions in the order they were added.
func (g *Graph) Actions() []*Action {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.actions)
}

// Len returns the number of actions.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.actions)
}

// Producer returns the action that outputs f.
func (g *Graph) Producer(f *fsitem.FileItem) (*Action, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.producers[f]
	return a, ok
}

// Prerequisites returns the producers of a's inputs, without duplicates.
func (g *Graph) Prerequisites(a *Action) []*Action {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prerequisitesLocked(a)
}

func (g *Graph) prerequisitesLocked(a *Action) []*Action {
	var out []*Action
	for _, in := range a.Inputs {
		p, ok := g.producers[in]
		if !ok || p == a || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Order returns the actions with every prerequisite before its
// dependents. A cycle is reported as a *dag.CycleError.
func (g *Graph) Order() ([]*Action, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := dag.New()
	byKey := make(map[string]*Action, len(g.actions))
	for _, a := range g.actions {
		key := a.key()
		byKey[key] = a
		d.AddNode(key)
	}
	for _, a := range g.actions {
		for _, p := range g.prerequisitesLocked(a) {
			d.AddEdge(p.key(), a.key())
		}
	}
	keys, err := d.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("ordering build actions: %w", err)
	}
	out := make([]*Action, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, nil
}

func (a *Action) key() string {
	return fmt.Sprintf("%s #%d", a.Description, a.id)
}

// Error implements the error interface.
func (e *DuplicateProducerError) Error() string {
	return fmt.Sprintf("%s is produced by both %q and %q", e.File, e.First, e.Second)
}

// Unwrap returns ErrDuplicateProducer for errors.Is() compatibility.
func (e *DuplicateProducerError) Unwrap() error { return ErrDuplicateProducer }
