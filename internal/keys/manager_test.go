package keys

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medeasy/medkeys/internal/audit"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keystore"
	"github.com/medeasy/medkeys/internal/secrets"
)

type testConfig struct {
	days       int
	production bool
}

func (c testConfig) RotationIntervalDays() int { return c.days }
func (c testConfig) IsProduction() bool        { return c.production }

// cheapParams keeps Argon2id fast in tests.
var cheapParams = secrets.KDFParams{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: secrets.KeySize}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// toggleSink records events and fails while failing is set.
type toggleSink struct {
	failing atomic.Bool
	audit.MemorySink
}

func (s *toggleSink) Log(component, actorID string, action audit.Action, message string, sensitive bool) error {
	if s.failing.Load() {
		return errors.New("audit sink offline")
	}
	return s.MemorySink.Log(component, actorID, action, message, sensitive)
}

type fixture struct {
	path  string
	sink  *toggleSink
	clock *testClock
	cfg   testConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		path:  filepath.Join(t.TempDir(), "medkeys", "keystore.json"),
		sink:  &toggleSink{},
		clock: &testClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
		cfg:   testConfig{days: 90},
	}
}

func (f *fixture) manager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	d, err := secrets.NewArgon2Deriver(cheapParams)
	require.NoError(t, err)
	opts = append([]Option{WithDeriver(d), WithClock(f.clock.Now)}, opts...)
	m, err := New(f.path, f.cfg, f.sink, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func (f *fixture) initialized(t *testing.T, password string) *Manager {
	t.Helper()
	m := f.manager(t)
	_, err := m.Initialize([]byte(password))
	require.NoError(t, err)
	return m
}

func (f *fixture) actions() []audit.Action {
	var out []audit.Action
	for _, e := range f.sink.Entries() {
		out = append(out, e.Action)
	}
	return out
}

func (f *fixture) readStore(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	return data
}

func TestInitializeCreatesStore(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	created, err := m.Initialize([]byte("Sw1ssP@ss!"))
	require.NoError(t, err)
	assert.True(t, created)

	store, err := keystore.Load(f.path)
	require.NoError(t, err)
	assert.Equal(t, keystore.DataPurposes(), store.Purposes())
	assert.Nil(t, store.RecoveryVerifier)

	now := f.clock.Now()
	for _, p := range keystore.DataPurposes() {
		meta := store.Metadata[p]
		assert.Equal(t, 1, meta.Version, p.String())
		assert.Equal(t, now, meta.CreatedAt, p.String())
		assert.Nil(t, meta.LastRotatedAt, p.String())
		assert.Equal(t, now.Add(RotationInterval(p, 90)), meta.RotationDueAt, p.String())
		assert.Len(t, store.KeyRecords[p].Ciphertext, keystore.WrappedKeySize)
	}

	info, err := os.Stat(f.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Contains(t, f.actions(), audit.Create)
}

func TestStoreNeverContainsMasterKey(t *testing.T) {
	f := newFixture(t)
	m := f.initialized(t, "Sw1ssP@ss!")

	store, err := keystore.Load(f.path)
	require.NoError(t, err)
	d, err := secrets.NewArgon2Deriver(cheapParams)
	require.NoError(t, err)
	master, err := d.DeriveKey([]byte("Sw1ssP@ss!"), store.Salt[:])
	require.NoError(t, err)

	raw := f.readStore(t)
	assert.NotContains(t, string(raw), string(master))
	for _, p := range keystore.DataPurposes() {
		dek, err := m.GetKey(p)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), string(dek))
	}
}

func TestInitializeUnlocksExistingStore(t *testing.T) {
	f := newFixture(t)
	first := f.initialized(t, "Sw1ssP@ss!")
	want, err := first.GetKey(keystore.FieldPatient)
	require.NoError(t, err)
	before := f.readStore(t)

	second := f.manager(t)
	created, err := second.Initialize([]byte("Sw1ssP@ss!"))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := second.GetKey(keystore.FieldPatient)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, before, f.readStore(t))
	assert.Contains(t, f.actions(), audit.Login)
}

func TestInitializeWrongPasswordChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.initialized(t, "Sw1ssP@ss!")
	before := f.readStore(t)

	m := f.manager(t)
	created, err := m.Initialize([]byte("wrong"))
	assert.False(t, created)
	require.ErrorIs(t, err, kerrors.ErrInvalidPassword)
	assert.Equal(t, before, f.readStore(t))

	_, err = m.GetKey(keystore.Database)
	assert.ErrorIs(t, err, kerrors.ErrStoreNotInitialized)

	entries := f.sink.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.SecurityEvent, last.Action)
	assert.NotContains(t, last.Message, "wrong")
}

func TestInitializeWrongPasswordKeepsActiveSession(t *testing.T) {
	f := newFixture(t)
	m := f.initialized(t, "Sw1ssP@ss!")
	want, err := m.GetKey(keystore.Database)
	require.NoError(t, err)

	_, err = m.Initialize([]byte("wrong"))
	require.ErrorIs(t, err, kerrors.ErrInvalidPassword)

	got, err := m.GetKey(keystore.Database)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInitializeCorruptStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.path), 0700))
	require.NoError(t, os.WriteFile(f.path, []byte(`{"salt":"AAAA"}`), 0600))

	m := f.manager(t)
	_, err := m.Initialize([]byte("Sw1ssP@ss!"))
	assert.ErrorIs(t, err, kerrors.ErrCorruptStore)
	assert.Contains(t, f.actions(), audit.SecurityEvent)
}

func TestInitializeStoreRoundTripsByteForByte(t *testing.T) {
	f := newFixture(t)
	f.initialized(t, "Sw1ssP@ss!")

	raw := f.readStore(t)
	store, err := keystore.Unmarshal(raw)
	require.NoError(t, err)
	again, err := keystore.Marshal(store)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestGetKey(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	_, err := m.GetKey(keystore.Database)
	require.ErrorIs(t, err, kerrors.ErrStoreNotInitialized)

	_, err = m.Initialize([]byte("Sw1ssP@ss!"))
	require.NoError(t, err)

	seen := map[string]keystore.Purpose{}
	for _, p := range keystore.DataPurposes() {
		k, err := m.GetKey(p)
		require.NoError(t, err)
		assert.Len(t, k, secrets.KeySize)
		if other, dup := seen[string(k)]; dup {
			t.Fatalf("%s and %s share a data key", p, other)
		}
		seen[string(k)] = p

		// Cached path returns the same key.
		again, err := m.GetKey(p)
		require.NoError(t, err)
		assert.Equal(t, k, again)
	}

	_, err = m.GetKey(keystore.Master)
	assert.ErrorIs(t, err, kerrors.ErrKeyNotFound)
	_, err = m.GetKey(keystore.Purpose(99))
	assert.ErrorIs(t, err, kerrors.ErrKeyNotFound)
}

func TestGetKeyReturnsCopy(t *testing.T) {
	f := newFixture(t)
	m := f.initialized(t, "Sw1ssP@ss!")

	k, err := m.GetKey(keystore.FieldSession)
	require.NoError(t, err)
	want := append([]byte(nil), k...)
	secrets.Wipe(k)

	got, err := m.GetKey(keystore.FieldSession)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetKeyTamperedRecord(t *testing.T) {
	f := newFixture(t)
	f.initialized(t, "Sw1ssP@ss!")

	store, err := keystore.Load(f.path)
	require.NoError(t, err)
	rec := store.KeyRecords[keystore.Backup]
	rec.Ciphertext[0] ^= 0x01
	store.KeyRecords[keystore.Backup] = rec
	require.NoError(t, keystore.Save(f.path, store))

	m := f.manager(t)
	_, err = m.Initialize([]byte("Sw1ssP@ss!"))
	require.NoError(t, err)

	_, err = m.GetKey(keystore.Backup)
	assert.ErrorIs(t, err, kerrors.ErrDecryptFailed)
	_, err = m.GetKey(keystore.Database)
	assert.NoError(t, err)
}

func TestFieldCipherWithManagedKey(t *testing.T) {
	f := newFixture(t)
	m := f.initialized(t, "Sw1ssP@ss!")

	key, err := m.GetKey(keystore.FieldPatient)
	require.NoError(t, err)
	c, err := secrets.NewFieldCipher(key)
	require.NoError(t, err)
	blob, err := c.EncryptString("Max Muster")
	require.NoError(t, err)

	other, err := m.GetKey(keystore.FieldSession)
	require.NoError(t, err)
	wrong, err := secrets.NewFieldCipher(other)
	require.NoError(t, err)
	_, err = wrong.Decrypt(blob)
	assert.ErrorIs(t, err, kerrors.ErrDecryptFailed)

	got, err := c.DecryptString(blob)
	require.NoError(t, err)
	assert.Equal(t, "Max Muster", got)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	m := f.initialized(t, "Sw1ssP@ss!")

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.GetKey(keystore.Database)
	assert.ErrorIs(t, err, kerrors.ErrManagerClosed)
	_, err = m.Initialize([]byte("Sw1ssP@ss!"))
	assert.ErrorIs(t, err, kerrors.ErrManagerClosed)
	assert.ErrorIs(t, m.RotateKey(keystore.Database, "alice"), kerrors.ErrManagerClosed)
	assert.ErrorIs(t, m.ChangeMasterPassword([]byte("a"), []byte("b")), kerrors.ErrManagerClosed)
	_, err = m.CreateRecoveryData([]byte("r"))
	assert.ErrorIs(t, err, kerrors.ErrManagerClosed)
	_, err = m.CreateShamirShares(2, 3)
	assert.ErrorIs(t, err, kerrors.ErrManagerClosed)
	_, err = m.Status()
	assert.ErrorIs(t, err, kerrors.ErrManagerClosed)
	assert.Contains(t, f.actions(), audit.Logout)
}

func TestNewValidatesArguments(t *testing.T) {
	f := newFixture(t)

	_, err := New("", f.cfg, f.sink)
	assert.ErrorIs(t, err, kerrors.ErrInvalidConfig)
	_, err = New(f.path, nil, f.sink)
	assert.ErrorIs(t, err, kerrors.ErrInvalidConfig)
	_, err = New(f.path, f.cfg, nil)
	assert.ErrorIs(t, err, kerrors.ErrInvalidConfig)
	_, err = New(f.path, testConfig{days: 0}, f.sink)
	assert.ErrorIs(t, err, kerrors.ErrInvalidConfig)
	_, err = New(f.path, testConfig{days: 60000}, f.sink)
	assert.ErrorIs(t, err, kerrors.ErrInvalidConfig)
}

func TestProductionFailsClosed(t *testing.T) {
	f := newFixture(t)
	prod := testConfig{days: 90, production: true}

	assert.ErrorIs(t, RequireEncryption(prod, false), kerrors.ErrEncryptionRequired)
	assert.NoError(t, RequireEncryption(prod, true))
	assert.NoError(t, RequireEncryption(f.cfg, false))

	weak, err := secrets.NewArgon2Deriver(cheapParams)
	require.NoError(t, err)
	_, err = New(f.path, prod, f.sink, WithDeriver(weak))
	assert.ErrorIs(t, err, kerrors.ErrEncryptionRequired)

	_, err = New(f.path, prod, f.sink, WithDeriver(opaqueDeriver{}))
	assert.ErrorIs(t, err, kerrors.ErrEncryptionRequired)

	// Default parameters are accepted; the empty password is rejected before
	// any derivation runs.
	m, err := New(f.path, prod, f.sink)
	require.NoError(t, err)
	_, err = m.Initialize(nil)
	assert.ErrorIs(t, err, kerrors.ErrEncryptionRequired)

	exists, err := keystore.Exists(f.path)
	require.NoError(t, err)
	assert.False(t, exists)
}

type opaqueDeriver struct{}

func (opaqueDeriver) DeriveKey(password, salt []byte) ([]byte, error) {
	return make([]byte, secrets.KeySize), nil
}

func TestAuditFailureDoesNotAbortOperations(t *testing.T) {
	f := newFixture(t)
	f.sink.failing.Store(true)

	m := f.manager(t)
	created, err := m.Initialize([]byte("Sw1ssP@ss!"))
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, m.RotateKey(keystore.Database, "alice"))

	// create, rotation started, rotation completed
	assert.Equal(t, 3, m.PendingAuditEvents())
	assert.ErrorIs(t, m.FlushAudit(), kerrors.ErrLogging)
	assert.Empty(t, f.sink.Entries())

	f.sink.failing.Store(false)
	require.NoError(t, m.FlushAudit())
	assert.Equal(t, 0, m.PendingAuditEvents())

	entries := f.sink.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, audit.Create, entries[0].Action)
	assert.Equal(t, audit.SecurityEvent, entries[3].Action)
	assert.Equal(t, "3 audit events were deferred", entries[3].Message)
}

func TestConcurrentAccess(t *testing.T) {
	f := newFixture(t)
	m := f.initialized(t, "Sw1ssP@ss!")

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := m.GetKey(keystore.FieldTranscript); err != nil {
					errs <- err
				}
			}
		}()
		go func() {
			defer wg.Done()
			if err := m.RotateKey(keystore.FieldTranscript, "alice"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent operation failed: %v", err)
	}

	meta, err := m.Metadata(keystore.FieldTranscript)
	require.NoError(t, err)
	assert.Equal(t, 9, meta.Version)

	current, err := m.GetKey(keystore.FieldTranscript)
	require.NoError(t, err)
	reopened := f.manager(t)
	_, err = reopened.Initialize([]byte("Sw1ssP@ss!"))
	require.NoError(t, err)
	fromDisk, err := reopened.GetKey(keystore.FieldTranscript)
	require.NoError(t, err)
	assert.Equal(t, current, fromDisk)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)

	m := f.manager(t)
	created, err := m.Initialize([]byte("Sw1ssP@ss!"))
	require.NoError(t, err)
	require.True(t, created)

	before, err := m.GetKey(keystore.FieldPatient)
	require.NoError(t, err)
	require.NoError(t, m.RotateKey(keystore.FieldPatient, "alice"))
	rotated, err := m.GetKey(keystore.FieldPatient)
	require.NoError(t, err)
	assert.NotEqual(t, before, rotated)

	require.NoError(t, m.ChangeMasterPassword([]byte("Sw1ssP@ss!"), []byte("N3wP@ss!")))
	require.NoError(t, m.Close())

	reopened := f.manager(t)
	created, err = reopened.Initialize([]byte("N3wP@ss!"))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := reopened.GetKey(keystore.FieldPatient)
	require.NoError(t, err)
	assert.Equal(t, rotated, got)

	meta, err := reopened.Metadata(keystore.FieldPatient)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Version)

	stale := f.manager(t)
	_, err = stale.Initialize([]byte("Sw1ssP@ss!"))
	assert.ErrorIs(t, err, kerrors.ErrInvalidPassword)

	var rotations []string
	for _, e := range f.sink.Entries() {
		if e.Action == audit.KeyRotation {
			assert.Equal(t, "alice", e.Actor)
			rotations = append(rotations, e.Message)
		}
	}
	require.Len(t, rotations, 2)
	assert.True(t, strings.HasPrefix(rotations[0], "rotation of FieldPatient started"))
	assert.True(t, strings.HasPrefix(rotations[1], "rotation of FieldPatient completed"))
}
