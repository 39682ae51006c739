package dombind

import (
	"fmt"

	"github.com/loomkit/loom/compiler"
	"github.com/loomkit/loom/dom"
	"github.com/loomkit/loom/styles"
)

// Host mounts one compiled component into an in-memory document and
// drives the flush boundary the way the browser host drives the
// microtask queue.
type Host struct {
	Doc *dom.Document
	Env *Env

	prog    *compiler.Program
	cleanup func()
}

// Mount clones the component's static markup into a fresh document and
// runs its binding program against env.
func Mount(prog *compiler.Program, env *Env) (*Host, error) {
	doc := dom.NewDocument()
	if err := doc.SetContent(prog.Static); err != nil {
		return nil, fmt.Errorf("mount %s: %w", prog.Selector, err)
	}
	cleanup, err := Instantiate(doc, doc.Root(), prog, env)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", prog.Selector, err)
	}
	return &Host{Doc: doc, Env: env, prog: prog, cleanup: cleanup}, nil
}

// AdoptStyles registers the component's style text and records this
// document as an adopter; a sheet the document already carries is not
// re-injected.
func (h *Host) AdoptStyles(reg *styles.Registry, css string) uint64 {
	id := reg.Register(css)
	reg.Adopt(h.Doc, id)
	return id
}

// Dispatch delivers one synthetic event and flushes at the dispatch
// tail, the end-of-task boundary.
func (h *Host) Dispatch(e *dom.Event) {
	h.Doc.Dispatch(e)
	h.Env.Scheduler().Flush()
}

// Flush drains pending signal notifications.
func (h *Host) Flush() {
	h.Env.Scheduler().Flush()
}

// HTML serializes the mounted tree.
func (h *Host) HTML() string {
	return h.Doc.HTML()
}

// Program returns the compiled component this host runs.
func (h *Host) Program() *compiler.Program {
	return h.prog
}

// Unmount runs every cleanup the mount registered. The document keeps
// its last rendered content.
func (h *Host) Unmount() {
	h.cleanup()
}
