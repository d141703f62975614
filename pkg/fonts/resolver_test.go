package fonts

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// createFontDir writes real TrueType fonts under allow-listed names.
// Arial.ttf is Go Regular, Impact.ttf is Go Bold, Roboto-Regular.ttf is
// corrupt and the remaining names are absent.
func createFontDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"Arial.ttf":          goregular.TTF,
		"Impact.ttf":         gobold.TTF,
		"Roboto-Regular.ttf": []byte("not a font"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newTestResolver(t *testing.T, logger *slog.Logger) *Resolver {
	t.Helper()
	cfg := DefaultConfig(createFontDir(t))
	cfg.Logger = logger
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return r
}

func TestNew(t *testing.T) {
	r := newTestResolver(t, nil)
	if r.Default() != "Arial.ttf" {
		t.Errorf("Default() = %q, want Arial.ttf", r.Default())
	}

	want := []string{"Anton-Regular.ttf", "Arial.ttf", "ComicSansMS.ttf", "Impact.ttf", "Roboto-Regular.ttf"}
	got := r.Available()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Available() = %v, want %v", got, want)
	}
}

func TestNewConfigurationErrors(t *testing.T) {
	dir := createFontDir(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty default", Config{Dir: dir, Available: DefaultAvailable}},
		{"default not allowed", Config{Dir: dir, Default: "Papyrus.ttf", Available: DefaultAvailable}},
		{"default missing", Config{Dir: dir, Default: "ComicSansMS.ttf", Available: DefaultAvailable}},
		{"default corrupt", Config{Dir: dir, Default: "Roboto-Regular.ttf", Available: DefaultAvailable}},
		{"empty directory", DefaultConfig(t.TempDir())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, types.ErrConfiguration) {
				t.Errorf("New() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestNewBuiltin(t *testing.T) {
	r := NewBuiltin(nil)
	if r.Default() != BuiltinGoRegular {
		t.Errorf("Default() = %q", r.Default())
	}

	res, err := r.Resolve(BuiltinGoRegular, 40)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != StatusResolved {
		t.Errorf("Status = %v, want resolved", res.Status)
	}

	res, err = r.Resolve("Arial.ttf", 40)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != StatusDefaulted || res.Handle.ID != BuiltinGoRegular {
		t.Errorf("Resolve(Arial.ttf) = %v/%s, want defaulted to builtin", res.Status, res.Handle.ID)
	}
}

func TestResolveBuiltinWhenListed(t *testing.T) {
	cfg := DefaultConfig(createFontDir(t))
	cfg.Available = append(cfg.Available, BuiltinGoRegular)
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	res, err := r.Resolve(BuiltinGoRegular, 32)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != StatusResolved || res.Handle.ID != BuiltinGoRegular {
		t.Errorf("Resolve(%s) = %v/%s, want resolved", BuiltinGoRegular, res.Status, res.Handle.ID)
	}
}

func TestResolve(t *testing.T) {
	r := newTestResolver(t, nil)

	tests := []struct {
		name       string
		identifier string
		wantID     string
		wantStatus Status
	}{
		{"allowed", "Impact.ttf", "Impact.ttf", StatusResolved},
		{"default", "Arial.ttf", "Arial.ttf", StatusResolved},
		{"unknown", "Papyrus.ttf", "Arial.ttf", StatusDefaulted},
		{"empty", "", "Arial.ttf", StatusDefaulted},
		{"allowed but missing", "ComicSansMS.ttf", "Arial.ttf", StatusDefaulted},
		{"allowed but corrupt", "Roboto-Regular.ttf", "Arial.ttf", StatusDefaulted},
		{"path traversal", "../Arial.ttf", "Arial.ttf", StatusDefaulted},
		{"builtin not listed", BuiltinGoRegular, "Arial.ttf", StatusDefaulted},
		{"unknown builtin", "builtin:comic", "Arial.ttf", StatusDefaulted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.identifier, 32)
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.identifier, err)
			}
			if res.Handle == nil {
				t.Fatal("Resolve returned nil handle")
			}
			if res.Handle.ID != tt.wantID {
				t.Errorf("Handle.ID = %q, want %q", res.Handle.ID, tt.wantID)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Status, tt.wantStatus)
			}
			if res.Requested != tt.identifier {
				t.Errorf("Requested = %q, want %q", res.Requested, tt.identifier)
			}
			if res.Handle.SizePx != 32 {
				t.Errorf("SizePx = %d, want 32", res.Handle.SizePx)
			}
		})
	}
}

func TestResolveFallbackSharesDefaultHandle(t *testing.T) {
	r := newTestResolver(t, nil)

	def, err := r.Resolve("Arial.ttf", 40)
	if err != nil {
		t.Fatal(err)
	}
	unknown, err := r.Resolve("Papyrus.ttf", 40)
	if err != nil {
		t.Fatal(err)
	}
	if def.Handle != unknown.Handle {
		t.Error("unknown identifier should yield the same handle as the default at that size")
	}

	other, err := r.Resolve("Arial.ttf", 41)
	if err != nil {
		t.Fatal(err)
	}
	if other.Handle == def.Handle {
		t.Error("different sizes must yield different handles")
	}
}

func TestResolveCache(t *testing.T) {
	r := newTestResolver(t, nil)

	first, _ := r.Resolve("Impact.ttf", 24)
	second, _ := r.Resolve("Impact.ttf", 24)
	if first.Handle != second.Handle {
		t.Error("repeated Resolve should return the cached handle")
	}
	if n := r.CachedHandles(); n != 1 {
		t.Errorf("CachedHandles() = %d, want 1", n)
	}

	r.Resolve("Impact.ttf", 48)
	r.Resolve("Nope.ttf", 24)
	if n := r.CachedHandles(); n != 3 {
		t.Errorf("CachedHandles() = %d, want 3", n)
	}
}

func TestResolveInvalidSize(t *testing.T) {
	r := newTestResolver(t, nil)
	for _, size := range []int{0, -10} {
		_, err := r.Resolve("Arial.ttf", size)
		if !errors.Is(err, types.ErrInput) {
			t.Errorf("Resolve(size=%d) error = %v, want ErrInput", size, err)
		}
	}
}

func TestResolveLogsFallback(t *testing.T) {
	var buf bytes.Buffer
	r := newTestResolver(t, slog.New(slog.NewTextHandler(&buf, nil)))

	if _, err := r.Resolve("Impact.ttf", 20); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("resolving an available font should not log, got %q", buf.String())
	}

	if _, err := r.Resolve("Papyrus.ttf", 20); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "requested=Papyrus.ttf", "resolved=Arial.ttf", "reason="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestResolveConcurrent(t *testing.T) {
	r := newTestResolver(t, nil)
	ids := []string{"Arial.ttf", "Impact.ttf", "Papyrus.ttf", "Roboto-Regular.ttf"}

	var wg sync.WaitGroup
	handles := make([]*Handle, 64)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(ids[i%len(ids)], 30)
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
				return
			}
			res.Handle.MeasureWidth("concurrent measuring")
			handles[i] = res.Handle
		}(i)
	}
	wg.Wait()

	for i := len(ids); i < len(handles); i++ {
		if handles[i] != handles[i%len(ids)] {
			t.Errorf("goroutine %d got a different handle for %s", i, ids[i%len(ids)])
		}
	}
}

func TestStatusString(t *testing.T) {
	if StatusDefaulted.String() != "defaulted" || StatusBuiltin.String() != "builtin" || StatusResolved.String() != "resolved" {
		t.Errorf("unexpected status names: %s %s %s", StatusResolved, StatusDefaulted, StatusBuiltin)
	}
}
