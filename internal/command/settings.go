package command

import (
	"fmt"
	"time"

	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
	"github.com/joeycumines/thief-autosplitter/internal/splitter"
	"github.com/joeycumines/thief-autosplitter/internal/storage"
)

// Timer backends.
const (
	BackendLocal     = "local"
	BackendLiveSplit = "livesplit"
)

// Settings is the typed view of the configuration that the run command and
// its helpers consume.
type Settings struct {
	Layout snapshot.Layout
	Rules  splitter.Rules

	IdleRate   float64
	ActiveRate float64

	Backend       string
	LiveSplitAddr string
	DialTimeout   time.Duration
	Segments      int

	JournalEnabled bool
	JournalDir     string
	MaxRuns        int
}

// LoadSettings resolves every setting from cfg, applying environment
// overrides and schema defaults. A nil cfg yields the defaults.
func LoadSettings(cfg *config.Config) (*Settings, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	r := &resolver{schema: config.DefaultSchema(), cfg: cfg}
	s := &Settings{}

	s.Layout.Module = r.str("game.module")
	s.Layout.PointerSize = r.int("game.pointer-size")
	for _, f := range snapshot.Fields {
		if r.err != nil {
			break
		}
		s.Layout.Paths[f], r.err = r.schema.ResolvePointerPath(cfg, config.OffsetKey(f))
	}

	s.Rules = splitter.Rules{
		Start:  r.bool("rules.start"),
		Split:  r.bool("rules.split"),
		Reset:  r.bool("rules.reset"),
		ILMode: r.bool("rules.il-mode"),
	}

	s.IdleRate = r.float("poll.idle-rate")
	s.ActiveRate = r.float("poll.active-rate")

	s.Backend = r.str("timer.backend")
	s.LiveSplitAddr = r.str("timer.livesplit-addr")
	s.DialTimeout = r.duration("timer.dial-timeout")
	s.Segments = r.int("timer.segments")

	s.JournalEnabled = r.bool("journal.enabled")
	s.JournalDir = r.str("journal.dir")
	s.MaxRuns = r.int("journal.max-runs")

	if r.err != nil {
		return nil, r.err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings that have no per-option type check.
func (s *Settings) Validate() error {
	if err := s.Layout.Validate(); err != nil {
		return err
	}
	if s.IdleRate <= 0 || s.ActiveRate <= 0 {
		return fmt.Errorf("poll rates must be positive, got idle=%v active=%v", s.IdleRate, s.ActiveRate)
	}
	switch s.Backend {
	case BackendLocal, BackendLiveSplit:
	default:
		return fmt.Errorf("unknown timer backend %q (want %s or %s)", s.Backend, BackendLocal, BackendLiveSplit)
	}
	if s.Segments < 0 {
		return fmt.Errorf("timer.segments must not be negative, got %d", s.Segments)
	}
	if s.MaxRuns < 0 {
		return fmt.Errorf("journal.max-runs must not be negative, got %d", s.MaxRuns)
	}
	return nil
}

// ResolveJournalDir returns JournalDir, or the default location when unset.
func (s *Settings) ResolveJournalDir() (string, error) {
	if s.JournalDir != "" {
		return s.JournalDir, nil
	}
	return storage.DefaultDir()
}

// resolver keeps the first resolution error so LoadSettings reads as a flat
// list of keys.
type resolver struct {
	schema *config.ConfigSchema
	cfg    *config.Config
	err    error
}

func (r *resolver) str(key string) string {
	return r.schema.Resolve(r.cfg, key)
}

func (r *resolver) bool(key string) bool {
	if r.err != nil {
		return false
	}
	v, err := r.schema.ResolveBool(r.cfg, key)
	r.err = err
	return v
}

func (r *resolver) int(key string) int {
	if r.err != nil {
		return 0
	}
	v, err := r.schema.ResolveInt(r.cfg, key)
	r.err = err
	return v
}

func (r *resolver) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.schema.ResolveFloat(r.cfg, key)
	r.err = err
	return v
}

func (r *resolver) duration(key string) time.Duration {
	if r.err != nil {
		return 0
	}
	v, err := r.schema.ResolveDuration(r.cfg, key)
	r.err = err
	return v
}
