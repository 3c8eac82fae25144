// Package notes stores attribution documents as git notes on a single
// notes ref and syncs that ref with a remote.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/whowrote/cli/cmd/whowrote/cli/attribution"
	"github.com/whowrote/cli/cmd/whowrote/cli/gitutil"
	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
)

// ErrNoNote is returned when a commit has no readable version 2 note.
var ErrNoNote = errors.New("no attribution note")

// Repository reads and writes attribution notes in one git repository.
type Repository struct {
	repo *git.Repository
	git  gitutil.Runner
	ref  string

	// Stderr receives the user-facing sync messages. Defaults to os.Stderr.
	Stderr io.Writer
}

// New returns a notes repository on ref. An empty ref selects the default.
func New(repo *git.Repository, runner gitutil.Runner, ref string) *Repository {
	if ref == "" {
		ref = paths.DefaultNoteRef
	}
	return &Repository{repo: repo, git: runner, ref: ref, Stderr: os.Stderr}
}

// Ref returns the notes ref this repository uses.
func (r *Repository) Ref() string {
	return r.ref
}

// Read returns the note attached to sha. A missing, unparsable or
// wrong-version note yields ErrNoNote.
func (r *Repository) Read(_ context.Context, sha string) (*attribution.Note, error) {
	data, err := r.readRaw(sha)
	if err != nil {
		return nil, err
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoNote, sha, err)
	}
	var note attribution.Note
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoNote, sha, err)
	}
	if note.Version != attribution.NoteVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrNoNote, sha, note.Version)
	}
	return &note, nil
}

// Has reports whether sha carries a readable note.
func (r *Repository) Has(ctx context.Context, sha string) bool {
	_, err := r.Read(ctx, sha)
	return err == nil
}

// Raw returns the note text attached to sha without validating it.
func (r *Repository) Raw(sha string) ([]byte, error) {
	return r.readRaw(sha)
}

func (r *Repository) notesTree() (*object.Tree, error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName(r.ref), true)
	if err != nil {
		return nil, ErrNoNote
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading notes commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading notes tree: %w", err)
	}
	return tree, nil
}

// readRaw looks the note blob up in the notes tree, trying the flat layout
// and the fanout layouts git switches to as the ref grows.
func (r *Repository) readRaw(sha string) ([]byte, error) {
	sha = strings.ToLower(strings.TrimSpace(sha))
	if len(sha) < 6 {
		return nil, ErrNoNote
	}
	tree, err := r.notesTree()
	if err != nil {
		return nil, err
	}
	for _, p := range []string{sha, sha[:2] + "/" + sha[2:], sha[:2] + "/" + sha[2:4] + "/" + sha[4:]} {
		f, err := tree.File(p)
		if err != nil {
			continue
		}
		content, err := f.Contents()
		if err != nil {
			return nil, fmt.Errorf("reading note blob: %w", err)
		}
		return []byte(content), nil
	}
	return nil, ErrNoNote
}

// Count returns the number of commits with a note on the ref.
func (r *Repository) Count() (int, error) {
	tree, err := r.notesTree()
	if errors.Is(err, ErrNoNote) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	err = tree.Files().ForEach(func(*object.File) error {
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("walking notes tree: %w", err)
	}
	return n, nil
}

// Write attaches note to sha, replacing any note already there.
func (r *Repository) Write(ctx context.Context, sha string, note *attribution.Note) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encoding note: %w", err)
	}
	if _, err := r.git.Run(ctx, string(data), "notes", "--ref", r.ref, "add", "-f", "-F", "-", sha); err != nil {
		return fmt.Errorf("writing note on %s: %w", sha, err)
	}
	return nil
}

func (r *Repository) remoteTrackingRef() string {
	return r.ref + "-remote"
}

// Push sends the notes ref to remote. A rejected push is retried once after
// fetching and merging the remote notes. Failures are reported on Stderr and
// never returned, so a user's git push is not blocked.
func (r *Repository) Push(ctx context.Context, remote string) {
	if _, err := r.repo.Reference(plumbing.ReferenceName(r.ref), true); err != nil {
		return
	}
	fmt.Fprintf(r.Stderr, "[whowrote] Pushing attribution notes to %s...\n", remote)

	err := r.tryPush(ctx, remote)
	if err == nil {
		return
	}
	fmt.Fprintf(r.Stderr, "[whowrote] Syncing with remote attribution notes...\n")
	if err := r.fetchAndMerge(ctx, remote); err != nil {
		fmt.Fprintf(r.Stderr, "[whowrote] Warning: couldn't sync notes: %v\n", err)
		return
	}
	if err := r.tryPush(ctx, remote); err != nil {
		fmt.Fprintf(r.Stderr, "[whowrote] Warning: failed to push notes after sync: %v\n", err)
	}
}

func (r *Repository) tryPush(ctx context.Context, remote string) error {
	// --no-verify keeps our own pre-push hook from recursing.
	if _, err := r.git.Run(ctx, "", "push", "--no-verify", "--quiet", remote, r.ref+":"+r.ref); err != nil {
		return fmt.Errorf("push notes: %w", err)
	}
	return nil
}

// Fetch pulls the remote notes ref and merges it into the local one, keeping
// local notes on conflict. Failures are reported on Stderr and returned.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	if err := r.fetchAndMerge(ctx, remote); err != nil {
		fmt.Fprintf(r.Stderr, "[whowrote] Warning: couldn't fetch notes: %v\n", err)
		return err
	}
	return nil
}

func (r *Repository) fetchAndMerge(ctx context.Context, remote string) error {
	tracking := r.remoteTrackingRef()
	if _, err := r.git.Run(ctx, "", "fetch", "--no-tags", "--quiet", remote, "+"+r.ref+":"+tracking); err != nil {
		return fmt.Errorf("fetch notes: %w", err)
	}
	if _, err := r.repo.Reference(plumbing.ReferenceName(r.ref), true); err != nil {
		if _, err := r.git.Run(ctx, "", "update-ref", r.ref, tracking); err != nil {
			return fmt.Errorf("create notes ref: %w", err)
		}
		return nil
	}
	if _, err := r.git.Run(ctx, "", "notes", "--ref", r.ref, "merge", "--quiet", "-s", "ours", tracking); err != nil {
		return fmt.Errorf("merge notes: %w", err)
	}
	return nil
}
