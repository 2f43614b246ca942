// Package batch remaps every class of an archive with a pool of workers.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"jremap/internal/classfile"
	"jremap/internal/classfmt"
	"jremap/internal/jar"
	"jremap/internal/rewrite"
)

var ErrNameCollision = errors.New("batch: two entries map to the same name")

// Rewriter rewrites one class in place. *rewrite.Rewriter implements it.
type Rewriter interface {
	RewriteStats(c *classfile.Class) (rewrite.Stats, error)
}

// Options controls a run.
type Options struct {
	classfmt.Options
	Logger *slog.Logger // nil discards
}

// ClassResult describes what happened to one class entry.
type ClassResult struct {
	Entry    string        `json:"entry"`
	NewEntry string        `json:"new_entry,omitempty"`
	OldName  string        `json:"old_name,omitempty"`
	NewName  string        `json:"new_name,omitempty"`
	Stats    rewrite.Stats `json:"stats"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether the class was passed through because of an error.
func (r ClassResult) Failed() bool { return r.Error != "" }

// Result is the output of Run. Entries are in input order.
type Result struct {
	Entries []jar.Entry
	Classes []ClassResult
	Diags   classfmt.Diags
}

// Summary counts class outcomes.
type Summary struct {
	Entries int `json:"entries"`
	Classes int `json:"classes"`
	Renamed int `json:"renamed"`
	Failed  int `json:"failed"`
}

func (r *Result) Summary() Summary {
	s := Summary{Entries: len(r.Entries), Classes: len(r.Classes)}
	for _, c := range r.Classes {
		switch {
		case c.Failed():
			s.Failed++
		case c.NewName != c.OldName:
			s.Renamed++
		}
	}
	return s
}

type outcome struct {
	entry  jar.Entry
	result ClassResult
	err    error
	done   bool
}

// Run rewrites the class entries of entries with rw, using
// opts.EffectiveWorkers() goroutines. Other entries are copied unchanged.
//
// In strict mode the first failing class stops the run and its error is
// returned. In best-effort mode a failing class is emitted unchanged and
// recorded in Result.Diags. Cancelling ctx stops the run between classes.
func Run(ctx context.Context, entries []jar.Entry, rw Rewriter, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		outcomes = make([]outcome, len(entries))
		queue    = make(chan int, opts.EffectiveWorkers())
		wg       sync.WaitGroup
		failOnce sync.Once
		failErr  error
	)
	for i := 0; i < opts.EffectiveWorkers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				if ctx.Err() != nil {
					continue
				}
				o := process(entries[idx], rw)
				outcomes[idx] = o
				if o.err != nil && opts.Mode == classfmt.ModeStrict {
					failOnce.Do(func() {
						failErr = o.err
						cancel()
					})
				}
			}
		}()
	}

dispatch:
	for i, e := range entries {
		if !e.IsClass() {
			continue
		}
		select {
		case queue <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(queue)
	wg.Wait()

	if failErr != nil {
		return nil, failErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}

	res := &Result{Entries: make([]jar.Entry, 0, len(entries))}
	for i, e := range entries {
		if !e.IsClass() {
			res.Entries = append(res.Entries, e)
			continue
		}
		o := outcomes[i]
		if !o.done {
			return nil, fmt.Errorf("batch: %s was not processed", e.Name)
		}
		if o.err != nil {
			logger.Warn("class passed through", "entry", e.Name, "error", o.err)
			res.Diags.Add(e.Name, diagKind(o.err), o.err.Error())
		}
		res.Entries = append(res.Entries, o.entry)
		res.Classes = append(res.Classes, o.result)
	}
	if err := res.resolveCollisions(opts.Mode); err != nil {
		return nil, err
	}
	sum := res.Summary()
	logger.Info("batch done", "entries", sum.Entries, "classes", sum.Classes, "renamed", sum.Renamed, "failed", sum.Failed)
	return res, nil
}

// process parses, rewrites and re-encodes one class entry. On failure the
// returned entry is the input, unchanged.
func process(e jar.Entry, rw Rewriter) outcome {
	o := outcome{entry: e, result: ClassResult{Entry: e.Name}, done: true}
	fail := func(err error) outcome {
		o.entry = e
		o.err = fmt.Errorf("%s: %w", e.Name, err)
		o.result.Error = err.Error()
		return o
	}
	c, err := classfile.Parse(e.Data)
	if err != nil {
		return fail(err)
	}
	old, err := c.Name()
	if err != nil {
		return fail(err)
	}
	o.result.OldName = old
	stats, err := rw.RewriteStats(c)
	if err != nil {
		return fail(err)
	}
	data, err := classfile.Write(c)
	if err != nil {
		return fail(err)
	}
	name, err := c.Name()
	if err != nil {
		return fail(err)
	}
	o.result.NewName = name
	o.result.Stats = stats
	o.entry.Data = data
	o.entry.Name = EntryName(e.Name, old, name)
	if o.entry.Name != e.Name {
		o.result.NewEntry = o.entry.Name
	}
	return o
}

// EntryName moves an entry path from old to name when the path ends with the
// old class name. A versioned prefix such as META-INF/versions/11/ is kept.
func EntryName(path, old, name string) string {
	suffix := old + ".class"
	if old == name || !strings.HasSuffix(path, suffix) {
		return path
	}
	prefix := path[:len(path)-len(suffix)]
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return path
	}
	return prefix + name + ".class"
}

func diagKind(err error) classfmt.DiagKind {
	var re *rewrite.Error
	switch {
	case errors.As(err, &re):
		return classfmt.DiagRewrite
	case errors.Is(err, classfile.ErrUnknownTag):
		return classfmt.DiagUnknownTag
	default:
		return classfmt.DiagInvalid
	}
}

// resolveCollisions keeps output names unique. In best-effort mode a later
// entry that collides keeps its input name.
func (r *Result) resolveCollisions(mode classfmt.Mode) error {
	seen := make(map[string]bool, len(r.Entries))
	ci := 0
	for i := range r.Entries {
		e := &r.Entries[i]
		isClass := e.IsClass()
		var cr *ClassResult
		if isClass && ci < len(r.Classes) {
			cr = &r.Classes[ci]
			ci++
		}
		if !seen[e.Name] {
			seen[e.Name] = true
			continue
		}
		if mode == classfmt.ModeStrict || cr == nil || cr.NewEntry == "" || seen[cr.Entry] {
			return fmt.Errorf("%w: %s", ErrNameCollision, e.Name)
		}
		r.Diags.Addf(cr.Entry, classfmt.DiagPassthrough, "renamed entry %s already exists; kept original path", e.Name)
		e.Name = cr.Entry
		cr.NewEntry = ""
		seen[e.Name] = true
	}
	return nil
}
