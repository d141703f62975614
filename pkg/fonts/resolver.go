// Package fonts resolves font identifiers to loaded, size-specific handles
// and measures text with them.
//
// Resolution has three tiers. An allow-listed identifier whose file loads is
// used as is. Anything else silently falls back to the configured default
// font, with a warning logged. If the default cannot be loaded at resolve
// time the embedded Go Regular font is used, and if even that fails the
// fixed 7x13 bitmap face. Only a default font that is missing when the
// resolver is constructed is an error.
package fonts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/solobuilderhub/memegen-ai/internal/utils"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// BuiltinGoRegular names the embedded Go Regular font. Identifiers with the
// builtin: prefix never touch the filesystem.
const BuiltinGoRegular = "builtin:goregular"

const builtinPrefix = "builtin:"

// DefaultAvailable is the closed set of font files agreed with the
// annotation producer.
var DefaultAvailable = []string{
	"Anton-Regular.ttf",
	"ComicSansMS.ttf",
	"Roboto-Regular.ttf",
	"Impact.ttf",
	"Arial.ttf",
}

// Status tags how a request was satisfied.
type Status int

const (
	// StatusResolved means the requested font was loaded.
	StatusResolved Status = iota
	// StatusDefaulted means the configured default was substituted.
	StatusDefaulted
	// StatusBuiltin means neither the request nor the default loaded and the
	// embedded font was used.
	StatusBuiltin
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusDefaulted:
		return "defaulted"
	case StatusBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Resolution is the result of Resolve.
type Resolution struct {
	Handle    *Handle
	Requested string
	Status    Status
}

// Config configures a Resolver.
type Config struct {
	// Dir holds the font files named by Available.
	Dir string
	// Default is substituted for unknown or unloadable identifiers. It must
	// be in Available or be BuiltinGoRegular.
	Default string
	// Available is the allow-list of identifiers.
	Available []string
	// Logger receives fallback warnings. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the stock allow-list with Arial.ttf as default,
// loaded from dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:       dir,
		Default:   types.DefaultFontName,
		Available: append([]string(nil), DefaultAvailable...),
	}
}

// Resolver maps identifiers to handles. It is safe for concurrent use and
// meant to be created once per process and injected where needed.
type Resolver struct {
	dir       string
	def       string
	available map[string]struct{}
	logger    *slog.Logger

	fonts   *onceMap[string, *opentype.Font]
	handles *onceMap[handleKey, *Handle]
}

type handleKey struct {
	id     string
	sizePx int
}

// New builds a resolver and checks that the default font loads. A missing
// or unparsable default is an ErrConfiguration.
func New(cfg Config) (*Resolver, error) {
	r := &Resolver{
		dir:       cfg.Dir,
		def:       cfg.Default,
		available: make(map[string]struct{}, len(cfg.Available)),
		logger:    cfg.Logger,
		fonts:     newOnceMap[string, *opentype.Font](),
		handles:   newOnceMap[handleKey, *Handle](),
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	for _, id := range cfg.Available {
		r.available[id] = struct{}{}
	}

	if r.def == "" {
		return nil, fmt.Errorf("%w: no default font configured", types.ErrConfiguration)
	}
	if !r.allowed(r.def) {
		return nil, fmt.Errorf("%w: default font %q is not in the available list", types.ErrConfiguration, r.def)
	}
	if _, err := r.load(r.def); err != nil {
		return nil, fmt.Errorf("%w: default font: %w", types.ErrConfiguration, err)
	}
	return r, nil
}

// NewBuiltin returns a resolver whose only font is the embedded Go Regular.
// Every identifier falls back to it.
func NewBuiltin(logger *slog.Logger) *Resolver {
	r, err := New(Config{Default: BuiltinGoRegular, Logger: logger})
	if err != nil {
		// the embedded font always parses
		panic(err)
	}
	return r
}

// Default returns the default identifier.
func (r *Resolver) Default() string { return r.def }

// Available lists the allow-listed identifiers in sorted order.
func (r *Resolver) Available() []string {
	out := make([]string, 0, len(r.available))
	for id := range r.available {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve returns a handle for identifier at sizePx. Unknown or missing
// fonts are not errors; the result's Status says what was substituted. The
// only error is a non-positive size.
func (r *Resolver) Resolve(identifier string, sizePx int) (Resolution, error) {
	res := Resolution{Requested: identifier, Status: StatusResolved}
	if sizePx <= 0 {
		return res, &types.InputError{Index: -1, Reason: fmt.Sprintf("font size %d is not positive", sizePx)}
	}

	target := identifier
	if !r.allowed(target) {
		r.logger.Warn("font not available, using default",
			"requested", identifier, "resolved", r.def, "reason", "not in allow-list")
		target = r.def
		res.Status = StatusDefaulted
	}

	f, err := r.load(target)
	if err != nil && target != r.def {
		r.logger.Warn("font failed to load, using default",
			"requested", identifier, "resolved", r.def, "reason", err.Error())
		target = r.def
		res.Status = StatusDefaulted
		f, err = r.load(target)
	}
	if err != nil {
		r.logger.Warn("default font failed to load, using built-in font",
			"requested", identifier, "resolved", BuiltinGoRegular, "reason", err.Error())
		target = BuiltinGoRegular
		res.Status = StatusBuiltin
		// a nil font selects the bitmap face
		f, _ = r.load(target)
	}

	h, err := r.handles.getOrCreate(handleKey{id: target, sizePx: sizePx}, func() (*Handle, error) {
		return newHandle(target, sizePx, f)
	})
	if err != nil {
		r.logger.Warn("font face creation failed, using bitmap face",
			"requested", identifier, "resolved", target, "reason", err.Error())
		res.Status = StatusBuiltin
		h, _ = newHandle(target, sizePx, nil)
	}
	res.Handle = h
	return res, nil
}

// CachedHandles reports how many (identifier, size) handles are cached.
func (r *Resolver) CachedHandles() int {
	return r.handles.len()
}

// allowed reports whether id may be loaded. The embedded font is only
// reachable when it is the default or listed explicitly.
func (r *Resolver) allowed(id string) bool {
	if strings.HasPrefix(id, builtinPrefix) && id != BuiltinGoRegular {
		return false
	}
	if id == BuiltinGoRegular && id == r.def {
		return true
	}
	_, ok := r.available[id]
	return ok
}

// load parses the font behind id once and caches the outcome.
func (r *Resolver) load(id string) (*opentype.Font, error) {
	return r.fonts.getOrCreate(id, func() (*opentype.Font, error) {
		data, err := r.read(id)
		if err != nil {
			return nil, err
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", id, err)
		}
		return f, nil
	})
}

func (r *Resolver) read(id string) ([]byte, error) {
	if id == BuiltinGoRegular {
		return goregular.TTF, nil
	}
	if filepath.Base(id) != id {
		return nil, fmt.Errorf("font identifier %q must be a plain file name", id)
	}
	path := filepath.Join(r.dir, id)
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("font file not found at %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return data, nil
}
