package snapshot

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/yndnr/bloomgate-go/internal/core/domain"
)

func makeStates(t *testing.T, n int) []domain.State {
	t.Helper()
	states := make([]domain.State, 0, n)
	for i := 0; i < n; i++ {
		f, err := domain.NewFilter(fmt.Sprintf("filter-%d", i), 1000, 0.01)
		if err != nil {
			t.Fatalf("NewFilter: %v", err)
		}
		for j := 0; j < 50; j++ {
			f.Set([]byte(fmt.Sprintf("key-%d-%d", i, j)))
		}
		f.Check([]byte(fmt.Sprintf("key-%d-0", i)))
		st, err := f.State()
		if err != nil {
			t.Fatalf("State: %v", err)
		}
		states = append(states, st)
	}
	return states
}

func TestCreateAndLoad(t *testing.T) {
	m, err := NewManager(DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	want := makeStates(t, 3)
	info, err := m.Create(want)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.FilterCount != 3 {
		t.Errorf("FilterCount = %d, want 3", info.FilterCount)
	}

	got, loadInfo, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadInfo.ID != info.ID {
		t.Errorf("loaded ID = %q, want %q", loadInfo.ID, info.ID)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d states, want %d", len(got), len(want))
	}

	for i := range want {
		f, err := domain.RestoreFilter(got[i])
		if err != nil {
			t.Fatalf("RestoreFilter: %v", err)
		}
		if f.Name() != want[i].Name {
			t.Errorf("restored name = %q, want %q", f.Name(), want[i].Name)
		}
		if !f.Check([]byte(fmt.Sprintf("key-%d-0", i))) {
			t.Errorf("%s: lost key-%d-0 through snapshot", f.Name(), i)
		}
		if inf := f.Info(); inf.Hits != want[i].Hits+1 {
			t.Errorf("%s: hits = %d, want %d", f.Name(), inf.Hits, want[i].Hits+1)
		}
	}
}

func TestLoadEmptyDir(t *testing.T) {
	m, err := NewManager(DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, _, err := m.Load(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("Load error = %v, want ErrNoSnapshots", err)
	}
}

func TestLoadFallsBackPastCorruption(t *testing.T) {
	m, err := NewManager(DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := m.Create(makeStates(t, 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := m.Create(makeStates(t, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Flip a byte in the middle of the newest snapshot.
	data, err := os.ReadFile(second.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[len(data)/2] ^= 0xFF
	if err := os.WriteFile(second.Path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	states, info, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Path == second.Path {
		t.Error("Load returned the corrupted snapshot")
	}
	if len(states) != 1 {
		t.Errorf("loaded %d states from fallback, want 1", len(states))
	}
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	m, err := NewManager(DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	info, err := m.Create(makeStates(t, 1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(info.Path, data[:len(data)/2], 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, _, err := m.Load(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("Load error = %v, want ErrNoSnapshots", err)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	m, err := NewManager(DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	info, err := m.Create(makeStates(t, 1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	copy(data, "NOTMAGIC")
	if err := os.WriteFile(info.Path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, _, err := m.Load(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("Load error = %v, want ErrNoSnapshots", err)
	}
}

func TestPruneRetention(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.RetentionCount = 2
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := m.Create(makeStates(t, 1)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := m.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("after prune: %d snapshots, want 2", len(infos))
	}

	// Newest must still load.
	if _, _, err := m.Load(); err != nil {
		t.Errorf("Load after prune: %v", err)
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	key, err := KeyFromPassphrase("correct horse battery")
	if err != nil {
		t.Fatalf("KeyFromPassphrase: %v", err)
	}
	cipher, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Cipher = cipher
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	want := makeStates(t, 2)
	if _, err := m.Create(want); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d states, want 2", len(got))
	}

	// Same passphrase after a restart decrypts.
	key2, err := KeyFromPassphrase("correct horse battery")
	if err != nil {
		t.Fatalf("KeyFromPassphrase: %v", err)
	}
	cipher2, err := NewCipher(key2)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	cfg2 := DefaultConfig(dir)
	cfg2.Cipher = cipher2
	m2, err := NewManager(cfg2)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, _, err := m2.Load(); err != nil {
		t.Errorf("Load with rebuilt cipher: %v", err)
	}

	// No cipher configured: the encrypted file is skipped, and with no
	// older plaintext file the dir counts as having no usable snapshot.
	plain, err := NewManager(DefaultConfig(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, _, err := plain.Load(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("Load without cipher error = %v, want ErrNoSnapshots", err)
	}

	// Wrong key: authenticated decryption fails.
	wrongKey, err := KeyFromPassphrase("totally different")
	if err != nil {
		t.Fatalf("KeyFromPassphrase: %v", err)
	}
	wrong, err := NewCipher(wrongKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	cfgW := DefaultConfig(dir)
	cfgW.Cipher = wrong
	mW, err := NewManager(cfgW)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, _, err := mW.Load(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("Load with wrong key error = %v, want ErrNoSnapshots", err)
	}
}

func TestLoadFallsBackPastUndecryptable(t *testing.T) {
	dir := t.TempDir()

	// Oldest snapshot is plaintext.
	plain, err := NewManager(DefaultConfig(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := plain.Create(makeStates(t, 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Newest snapshot is encrypted under a different configuration.
	key, err := KeyFromPassphrase("correct horse battery")
	if err != nil {
		t.Fatalf("KeyFromPassphrase: %v", err)
	}
	cipher, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	cfg := DefaultConfig(dir)
	cfg.Cipher = cipher
	enc, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	encInfo, err := enc.Create(makeStates(t, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A plaintext-configured manager skips the encrypted file and loads
	// the older plaintext one.
	states, info, err := plain.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Path == encInfo.Path {
		t.Error("Load returned the undecryptable snapshot")
	}
	if len(states) != 1 {
		t.Errorf("loaded %d states from fallback, want 1", len(states))
	}
}

func TestCipherValidation(t *testing.T) {
	if _, err := NewCipher(make([]byte, 16)); !errors.Is(err, ErrKeySize) {
		t.Errorf("NewCipher(16 bytes) error = %v, want ErrKeySize", err)
	}
	if _, err := KeyFromPassphrase("short"); !errors.Is(err, ErrPassphraseWeak) {
		t.Errorf("KeyFromPassphrase(short) error = %v, want ErrPassphraseWeak", err)
	}
}
