// Package capture turns AI tool edit events into pending edits.
//
// A provider hook hands Run one JSON payload. Run decodes it into the
// provider's payload type, extracts the added lines, and appends the result
// to the pending store of the repository that contains the edited file.
// Capture never fails its caller: every error path yields zero stored edits
// and is reported only through the debug log.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/whowrote/cli/cmd/whowrote/cli/logging"
	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
	"github.com/whowrote/cli/cmd/whowrote/cli/pending"
	"github.com/whowrote/cli/cmd/whowrote/cli/settings"
	"github.com/whowrote/cli/redact"
)

// Request is one capture invocation.
type Request struct {
	Provider string
	Event    string
	Payload  []byte
	// Dir resolves relative file paths when the payload carries no working
	// directory of its own. Defaults to the process working directory.
	Dir string
	Now time.Time
}

// Result reports what a capture did. Err is informational only.
type Result struct {
	Captured int
	Stored   int
	Skipped  int
	Err      error
}

// Run decodes, normalizes and stores one payload.
func Run(ctx context.Context, req Request) Result {
	ctx = logging.WithComponent(ctx, "capture")
	ctx = logging.WithProvider(ctx, req.Provider)
	start := time.Now()

	res := run(ctx, req)

	attrs := []any{
		slog.Int("captured", res.Captured),
		slog.Int("stored", res.Stored),
		slog.Int("skipped", res.Skipped),
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}
	logging.LogDuration(ctx, slog.LevelDebug, "capture finished", start, attrs...)
	return res
}

func run(ctx context.Context, req Request) Result {
	p, err := Decode(req.Provider, req.Event, req.Payload)
	if err != nil {
		return Result{Err: err}
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	edits := Normalize(p, now)
	res := Result{Captured: len(edits)}
	if len(edits) == 0 {
		return res
	}

	base := req.Dir
	if cp, ok := p.(*ClaudeCodePayload); ok && cp.Cwd != "" {
		base = cp.Cwd
	}
	abs, err := absolute(p.File(), base)
	if err != nil {
		res.Err = err
		return res
	}

	root, err := paths.FindDataRoot(abs)
	if err != nil {
		res.Skipped = len(edits)
		if !errors.Is(err, paths.ErrNoDataDir) {
			res.Err = err
		}
		return res
	}
	rel := paths.ToRelativePath(abs, root)
	if rel == "" || paths.IsInfrastructurePath(rel) {
		res.Skipped = len(edits)
		return res
	}

	s, err := settings.LoadFrom(root)
	if err != nil {
		res.Err = fmt.Errorf("loading settings: %w", err)
		return res
	}
	if !s.Enabled {
		res.Skipped = len(edits)
		return res
	}

	store, err := pending.OpenForRepo(root)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Debug(ctx, "closing pending store failed", slog.String("error", err.Error()))
		}
	}()

	for _, e := range edits {
		e.FilePath = rel
		if s.RedactionEnabled() {
			redactEdit(e)
		}
		if _, err := store.InsertEdit(ctx, e); err != nil {
			res.Err = err
			res.Skipped++
			continue
		}
		res.Stored++
	}
	return res
}

func absolute(file, base string) (string, error) {
	if filepath.IsAbs(file) {
		return filepath.Clean(file), nil
	}
	if base == "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", file, err)
		}
		return abs, nil
	}
	return filepath.Join(base, file), nil
}

// redactEdit scrubs secrets from stored text. Hashes were computed on the
// original text and are left untouched.
func redactEdit(e *pending.CapturedEdit) {
	e.Content = redact.String(e.Content)
	e.OldContent = redact.String(e.OldContent)
	for i := range e.Lines {
		l := &e.Lines[i]
		l.Content = redact.String(l.Content)
		l.ContextBefore = redact.String(l.ContextBefore)
		l.ContextAfter = redact.String(l.ContextAfter)
	}
}
