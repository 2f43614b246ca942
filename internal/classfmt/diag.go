// Package classfmt provides shared stream, diagnostic and mode types for
// class-file processing.
package classfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagInvalid     DiagKind = "invalid"
	DiagUnknownTag  DiagKind = "unknown_tag"
	DiagRewrite     DiagKind = "rewrite"
	DiagPassthrough DiagKind = "passthrough"
)

// Diag records a non-fatal issue encountered while processing an archive entry.
type Diag struct {
	Entry string   `json:"entry"`
	Kind  DiagKind `json:"kind"`
	Msg   string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Entry, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(entry string, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Entry: entry, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(entry string, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Entry: entry, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Mode controls error handling behavior.
type Mode int

const (
	ModeStrict     Mode = iota // first failing class aborts the run
	ModeBestEffort             // failing classes pass through unchanged, accumulate diags
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeBestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a config or flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return ModeStrict, nil
	case "", "best-effort", "besteffort":
		return ModeBestEffort, nil
	default:
		return ModeBestEffort, fmt.Errorf("classfmt: unknown mode %q", s)
	}
}

// Options controls processing behavior across packages.
type Options struct {
	Mode    Mode
	Workers int // concurrent class workers; 0 = use default
}

// DefaultWorkers is the worker count used when Options.Workers is unset.
const DefaultWorkers = 4

func (o Options) EffectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return DefaultWorkers
}
