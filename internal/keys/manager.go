package keys

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/medeasy/medkeys/internal/audit"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keystore"
	logger "github.com/medeasy/medkeys/internal/logging"
	"github.com/medeasy/medkeys/internal/secrets"
	"github.com/medeasy/medkeys/internal/utils"
)

const (
	// Component is the audit component name of the key manager.
	Component = "key_manager"

	// SystemActor is the actor recorded for operations without a named user.
	SystemActor = "system"
)

type state int

const (
	uninitialized state = iota
	active
	closed
)

// Manager owns the master key for a session and hands out data keys.
//
// A single mutex guards the store mirror, the master key and the data key
// cache. Mutations follow the same order: decrypt what is needed, mutate a
// clone of the store, save it atomically, then swap the mirror and cache.
// A failed save therefore leaves both disk and memory unchanged.
type Manager struct {
	storePath string
	cfg       Config
	audit     *audit.BestEffort
	deriver   secrets.KeyDeriver
	now       func() time.Time
	log       logger.Logger
	save      func(path string, s *keystore.KeyStore) error

	mu     sync.Mutex
	state  state
	store  *keystore.KeyStore
	master *memguard.Enclave
	cache  map[keystore.Purpose]*memguard.Enclave
}

// New creates a Manager for the store at storePath. It does not touch the
// file; call Initialize with the user's password to create or unlock it.
func New(storePath string, cfg Config, sink audit.Sink, opts ...Option) (*Manager, error) {
	if storePath == "" {
		return nil, fmt.Errorf("%w: key store path must be set", kerrors.ErrInvalidConfig)
	}
	if cfg == nil || sink == nil {
		return nil, fmt.Errorf("%w: config and audit sink are required", kerrors.ErrInvalidConfig)
	}
	if days := cfg.RotationIntervalDays(); days < 1 || days > MaxRotationIntervalDays {
		return nil, fmt.Errorf("%w: rotation interval must be between 1 and %d days, got %d", kerrors.ErrInvalidConfig, MaxRotationIntervalDays, days)
	}

	m := &Manager{
		storePath: storePath,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.Logger{Component: Component},
		save:      keystore.Save,
		cache:     make(map[keystore.Purpose]*memguard.Enclave),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.audit == nil {
		if b, ok := sink.(*audit.BestEffort); ok {
			m.audit = b
		} else {
			m.audit = audit.NewBestEffort(sink)
		}
	}

	if m.deriver == nil {
		d, err := secrets.NewArgon2Deriver(secrets.DefaultKDFParams())
		if err != nil {
			return nil, err
		}
		m.deriver = d
	}

	if cfg.IsProduction() {
		p, ok := m.deriver.(paramsReporter)
		if !ok || !p.Params().MeetsPolicy() {
			return nil, fmt.Errorf("%w: key derivation parameters are below the production minimum", kerrors.ErrEncryptionRequired)
		}
	}

	return m, nil
}

// StorePath returns the path of the managed key store.
func (m *Manager) StorePath() string {
	return m.storePath
}

// Initialize creates the key store on first use or unlocks the existing one.
// created reports whether a new store was written. A wrong password returns
// ErrInvalidPassword and leaves both the file and the manager unchanged.
func (m *Manager) Initialize(password []byte) (created bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == closed {
		return false, kerrors.ErrManagerClosed
	}
	if m.cfg.IsProduction() && len(password) == 0 {
		return false, fmt.Errorf("%w: a master password is required in production mode", kerrors.ErrEncryptionRequired)
	}

	exists, err := keystore.Exists(m.storePath)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := m.createLocked(password); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, m.unlockLocked(password)
}

func (m *Manager) createLocked(password []byte) error {
	salt, err := secrets.GenerateSalt()
	if err != nil {
		return err
	}
	master, err := m.deriver.DeriveKey(password, salt)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(master)

	store := keystore.New([secrets.SaltSize]byte(salt))
	now := m.timestamp()
	base := m.cfg.RotationIntervalDays()
	for _, p := range keystore.DataPurposes() {
		dek, err := secrets.GenerateKey()
		if err != nil {
			return err
		}
		rec, err := wrapKey(master, dek)
		memguard.WipeBytes(dek)
		if err != nil {
			return err
		}
		store.KeyRecords[p] = rec
		store.Metadata[p] = keystore.KeyMetadata{
			CreatedAt:     now,
			RotationDueAt: now.Add(RotationInterval(p, base)),
			Version:       1,
		}
	}

	if err := m.persistLocked(store); err != nil {
		return err
	}

	m.activateLocked(store, master)
	m.log.Infof("Created key store at %s", m.storePath)
	m.record(SystemActor, audit.Create, "key store created with %d data keys", len(store.KeyRecords))
	return nil
}

func (m *Manager) unlockLocked(password []byte) error {
	store, err := keystore.Load(m.storePath)
	if err != nil {
		if errors.Is(err, kerrors.ErrCorruptStore) {
			m.record(SystemActor, audit.SecurityEvent, "key store failed validation")
		}
		return err
	}

	candidate, err := m.deriver.DeriveKey(password, store.Salt[:])
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(candidate)

	if !authenticates(candidate, store) {
		m.record(SystemActor, audit.SecurityEvent, "rejected key store unlock: invalid password")
		return kerrors.ErrInvalidPassword
	}

	m.activateLocked(store, candidate)
	m.log.Debugf("Unlocked key store at %s", m.storePath)
	m.record(SystemActor, audit.Login, "key store unlocked")
	return nil
}

// authenticates reports whether key opens at least one record, trying
// purposes in DataPurposes order.
func authenticates(key []byte, store *keystore.KeyStore) bool {
	for _, p := range keystore.DataPurposes() {
		rec, ok := store.KeyRecords[p]
		if !ok {
			continue
		}
		dek, err := secrets.Open(key, rec.Nonce[:], rec.Ciphertext)
		if err == nil {
			memguard.WipeBytes(dek)
			return true
		}
	}
	return false
}

// activateLocked installs a new store mirror and master key and drops any
// cached data keys.
func (m *Manager) activateLocked(store *keystore.KeyStore, master []byte) {
	m.store = store
	m.master = memguard.NewEnclave(bytes.Clone(master))
	m.cache = make(map[keystore.Purpose]*memguard.Enclave)
	m.state = active
}

// GetKey returns a copy of the data key for purpose. The caller owns the
// slice and should wipe it after use.
func (m *Manager) GetKey(p keystore.Purpose) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return nil, err
	}
	if !p.IsData() {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, p)
	}

	if enc, ok := m.cache[p]; ok {
		buf, err := enc.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptFailed, err)
		}
		defer buf.Destroy()
		return bytes.Clone(buf.Bytes()), nil
	}

	rec, ok := m.store.KeyRecords[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, p)
	}

	master, release, err := m.openMasterLocked()
	if err != nil {
		return nil, err
	}
	defer release()

	dek, err := secrets.Open(master, rec.Nonce[:], rec.Ciphertext)
	if err != nil {
		m.record(SystemActor, audit.SecurityEvent, "data key for %s failed authentication", p)
		return nil, fmt.Errorf("%w: data key for %s", kerrors.ErrDecryptFailed, p)
	}
	m.cache[p] = memguard.NewEnclave(bytes.Clone(dek))
	m.record(SystemActor, audit.KeyAccess, "data key for %s loaded", p)
	return dek, nil
}

// Close wipes the session keys. Every later call returns ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == closed {
		return nil
	}
	wasActive := m.state == active
	m.master = nil
	m.cache = nil
	m.store = nil
	m.state = closed

	if wasActive {
		m.record(SystemActor, audit.Logout, "key manager closed")
	}
	return nil
}

// PendingAuditEvents returns the number of audit events waiting for the
// sink to recover.
func (m *Manager) PendingAuditEvents() int {
	return m.audit.Pending()
}

// FlushAudit replays deferred audit events. It returns ErrLogging while the
// sink still fails.
func (m *Manager) FlushAudit() error {
	return m.audit.Flush()
}

func (m *Manager) requireActiveLocked() error {
	switch m.state {
	case closed:
		return kerrors.ErrManagerClosed
	case uninitialized:
		return kerrors.ErrStoreNotInitialized
	}
	return nil
}

// openMasterLocked returns the master key and a func that destroys the
// plaintext copy.
func (m *Manager) openMasterLocked() ([]byte, func(), error) {
	buf, err := m.master.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: master key: %v", kerrors.ErrDecryptFailed, err)
	}
	return buf.Bytes(), buf.Destroy, nil
}

// saveLocked persists next and makes it the in-memory mirror.
func (m *Manager) saveLocked(next *keystore.KeyStore) error {
	if err := m.persistLocked(next); err != nil {
		return err
	}
	m.store = next
	return nil
}

// persistLocked writes s to disk. Once the file has been replaced the write
// counts as committed, even if the directory sync failed, so callers must
// update their in-memory state to match.
func (m *Manager) persistLocked(s *keystore.KeyStore) error {
	err := m.save(m.storePath, s)
	if err == nil {
		return nil
	}
	if errors.Is(err, utils.ErrNotSynced) {
		m.log.Warnf("Key store replaced but not synced to disk: %v", err)
		return nil
	}
	return err
}

// record reports an event to the audit sink. A failing sink never aborts
// the calling operation; the event stays queued for replay.
func (m *Manager) record(actor string, action audit.Action, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err := m.audit.Log(Component, actor, action, msg, false); err != nil {
		m.log.Warnf("Audit event deferred: %v", err)
	}
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC().Round(0)
}

// wrapKey encrypts a data key under the master key with a fresh nonce.
func wrapKey(master, dek []byte) (keystore.KeyRecord, error) {
	nonce, err := secrets.GenerateNonce()
	if err != nil {
		return keystore.KeyRecord{}, err
	}
	ct, err := secrets.Seal(master, nonce, dek)
	if err != nil {
		return keystore.KeyRecord{}, err
	}
	return keystore.KeyRecord{Nonce: [secrets.NonceSize]byte(nonce), Ciphertext: ct}, nil
}
