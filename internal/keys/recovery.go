package keys

import (
	"crypto/subtle"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/medeasy/medkeys/internal/audit"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/secrets"
)

// CreateRecoveryData wraps the master key under recoveryPassword and returns
// the encoded blob. Only its SHA-256 digest is kept in the store; the caller
// is responsible for storing the blob itself somewhere safe.
func (m *Manager) CreateRecoveryData(recoveryPassword []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return "", err
	}
	if len(recoveryPassword) == 0 {
		return "", fmt.Errorf("%w: recovery password must not be empty", kerrors.ErrRecovery)
	}

	master, release, err := m.openMasterLocked()
	if err != nil {
		return "", err
	}
	defer release()

	blob, err := secrets.WrapRecovery(m.deriver, master, recoveryPassword, m.now())
	if err != nil {
		return "", err
	}
	encoded, raw, err := blob.Encode()
	if err != nil {
		return "", err
	}

	next := m.store.Clone()
	next.RecoveryVerifier = secrets.RecoveryVerifier(raw)
	if err := m.saveLocked(next); err != nil {
		return "", err
	}

	m.record(SystemActor, audit.KeyCreation, "recovery data created")
	return encoded, nil
}

// CreateShamirShares splits the master key into count shares of which any
// threshold rebuild it.
func (m *Manager) CreateShamirShares(threshold, count int) ([]secrets.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return nil, err
	}
	if err := secrets.ValidateSplit(threshold, count); err != nil {
		return nil, err
	}

	master, release, err := m.openMasterLocked()
	if err != nil {
		return nil, err
	}
	defer release()

	shares, err := secrets.Split(master, threshold, count)
	if err != nil {
		return nil, err
	}

	m.record(SystemActor, audit.KeyCreation, "recovery shares created (%d/%d)", threshold, count)
	return shares, nil
}

// VerifyRecoveryData checks that encoded is the recovery data last created
// for this store and that recoveryPassword opens it. Nothing is changed.
func (m *Manager) VerifyRecoveryData(encoded string, recoveryPassword []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return err
	}

	blob, raw, err := secrets.DecodeRecoveryBlob(encoded)
	if err != nil {
		return err
	}
	if !secrets.CheckRecoveryVerifier(m.store.RecoveryVerifier, raw) {
		m.record(SystemActor, audit.SecurityEvent, "recovery data verification failed: unknown recovery data")
		return fmt.Errorf("%w: recovery data does not belong to the current key store", kerrors.ErrRecovery)
	}

	recovered, err := secrets.UnwrapRecovery(m.deriver, blob, recoveryPassword)
	if err != nil {
		m.record(SystemActor, audit.SecurityEvent, "recovery data verification failed: invalid recovery password")
		return fmt.Errorf("%w: %w", kerrors.ErrRecovery, err)
	}
	defer memguard.WipeBytes(recovered)

	if err := m.matchMasterLocked(recovered); err != nil {
		return err
	}
	m.record(SystemActor, audit.Read, "recovery data verified")
	return nil
}

// VerifyShares checks that shares rebuild the current master key.
func (m *Manager) VerifyShares(shares []secrets.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return err
	}

	recovered, err := secrets.Combine(shares)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(recovered)

	if err := m.matchMasterLocked(recovered); err != nil {
		m.record(SystemActor, audit.SecurityEvent, "recovery share verification failed")
		return err
	}
	m.record(SystemActor, audit.Read, "recovery shares verified (%d supplied)", len(shares))
	return nil
}

func (m *Manager) matchMasterLocked(candidate []byte) error {
	master, release, err := m.openMasterLocked()
	if err != nil {
		return err
	}
	defer release()

	if subtle.ConstantTimeCompare(candidate, master) != 1 {
		return fmt.Errorf("%w: recovered key does not match the master key", kerrors.ErrRecovery)
	}
	return nil
}
