package vm

import (
	"os"

	"github.com/josephlewis42/vmsh/core/shell"
)

// Files are the standard streams of a pipeline.
type Files struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

func (f Files) list() []*os.File {
	return []*os.File{f.Stdin, f.Stdout, f.Stderr}
}

// Redirection binds a plan's redirect targets over a set of standard streams
// for the duration of one pipeline.
type Redirection struct {
	Files

	saved  Files
	opened []*os.File
}

func openRedirect(slot shell.Slot, r *shell.Redirect) (*os.File, error) {
	if slot == shell.SlotStdin {
		return os.Open(r.Filename)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if r.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(r.Filename, flags, 0644)
}

// Redirect opens every redirect target in the plan and binds it over base.
// If any file fails to open, the ones already opened are closed and a
// ResourceError naming the file is returned.
func Redirect(base Files, plan *shell.Plan) (*Redirection, error) {
	r := &Redirection{Files: base, saved: base}

	for slot := shell.Slot(0); int(slot) < shell.NumSlots; slot++ {
		target := plan.Redirect(slot)
		if target == nil {
			continue
		}

		f, err := openRedirect(slot, target)
		if err != nil {
			r.Restore()
			return nil, &ResourceError{Op: "open", Path: target.Filename, Err: err}
		}
		r.opened = append(r.opened, f)

		switch slot {
		case shell.SlotStdout:
			r.Stdout = f
		case shell.SlotStdin:
			r.Stdin = f
		case shell.SlotStderr:
			r.Stderr = f
		case shell.SlotCombined:
			r.Stdout = f
			r.Stderr = f
		}
	}

	return r, nil
}

// Restore closes the opened targets and rebinds the original streams. It's
// safe to call more than once.
func (r *Redirection) Restore() error {
	var firstErr error
	for _, f := range r.opened {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.opened = nil
	r.Files = r.saved
	return firstErr
}
