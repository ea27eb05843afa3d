package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	errs       int
	attempts   int
	successes  int
	failures   int
	stale      int
}

func (o *recordingObserver) ObserveOperation(operation string, _ float64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, operation)
	if err != nil {
		o.errs++
	}
}

func (o *recordingObserver) ObserveRetryAttempt(string) { o.mu.Lock(); o.attempts++; o.mu.Unlock() }
func (o *recordingObserver) ObserveRetrySuccess(string) { o.mu.Lock(); o.successes++; o.mu.Unlock() }
func (o *recordingObserver) ObserveRetryFailure(string) { o.mu.Lock(); o.failures++; o.mu.Unlock() }
func (o *recordingObserver) ObserveStaleError(string)   { o.mu.Lock(); o.stale++; o.mu.Unlock() }

func withObserver(t *testing.T) *recordingObserver {
	t.Helper()
	obs := &recordingObserver{}
	SetObserver(obs)
	t.Cleanup(func() { SetObserver(nil) })
	return obs
}

func fastConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatWithRetry(t *testing.T) {
	obs := withObserver(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, fastConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}

	_, err = StatWithRetry(filepath.Join(dir, "missing.txt"), fastConfig())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("StatWithRetry(missing) error = %v, want ErrNotExist", err)
	}

	if len(obs.operations) != 2 || obs.operations[0] != "stat" {
		t.Errorf("operations = %v, want two stat observations", obs.operations)
	}
	if obs.errs != 1 {
		t.Errorf("errs = %d, want 1", obs.errs)
	}
	if obs.attempts != 0 {
		t.Errorf("attempts = %d, want 0 for non-stale errors", obs.attempts)
	}
}

func TestOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenWithRetry(path, fastConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	f.Close()

	if _, err := OpenWithRetry(filepath.Join(dir, "nope"), fastConfig()); err == nil {
		t.Error("OpenWithRetry(missing) expected error")
	}
}

func TestWithRetry_StaleThenSuccess(t *testing.T) {
	obs := withObserver(t)
	calls := 0

	v, err := withRetry("stat", "/nfs/a.jpg", fastConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, syscall.ESTALE
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if v != 7 || calls != 2 {
		t.Errorf("v=%d calls=%d, want 7 and 2", v, calls)
	}
	if obs.stale != 1 || obs.attempts != 1 || obs.successes != 1 {
		t.Errorf("stale=%d attempts=%d successes=%d, want 1/1/1", obs.stale, obs.attempts, obs.successes)
	}
}

func TestWithRetry_StaleExhausted(t *testing.T) {
	obs := withObserver(t)
	calls := 0

	_, err := withRetry("open", "/nfs/a.jpg", fastConfig(), func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want MaxRetries+1 = 3", calls)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "existing file", path: file, want: true},
		{name: "missing file", path: filepath.Join(dir, "b.png"), want: false},
		{name: "directory", path: dir, want: false},
		{name: "empty path", path: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Exists(tt.path); got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
