package keys

import (
	"bytes"
	"crypto/subtle"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/medeasy/medkeys/internal/audit"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/secrets"
)

// ChangeMasterPassword re-wraps every data key under a key derived from
// newPassword and a fresh salt. Data keys and their metadata are unchanged.
// Existing recovery data stops matching the store and its verifier is
// cleared.
func (m *Manager) ChangeMasterPassword(oldPassword, newPassword []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return err
	}
	if m.cfg.IsProduction() && len(newPassword) == 0 {
		return fmt.Errorf("%w: a master password is required in production mode", kerrors.ErrEncryptionRequired)
	}

	master, release, err := m.openMasterLocked()
	if err != nil {
		return err
	}
	defer release()

	candidate, err := m.deriver.DeriveKey(oldPassword, m.store.Salt[:])
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(candidate)

	if subtle.ConstantTimeCompare(candidate, master) != 1 {
		m.record(SystemActor, audit.SecurityEvent, "rejected master password change: invalid current password")
		return kerrors.ErrInvalidPassword
	}

	salt, err := secrets.GenerateSalt()
	if err != nil {
		return err
	}
	newMaster, err := m.deriver.DeriveKey(newPassword, salt)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(newMaster)

	next := m.store.Clone()
	next.Salt = [secrets.SaltSize]byte(salt)
	next.RecoveryVerifier = nil
	for p, rec := range m.store.KeyRecords {
		dek, err := secrets.Open(master, rec.Nonce[:], rec.Ciphertext)
		if err != nil {
			return fmt.Errorf("%w: data key for %s", kerrors.ErrDecryptFailed, p)
		}
		newRec, err := wrapKey(newMaster, dek)
		memguard.WipeBytes(dek)
		if err != nil {
			return err
		}
		next.KeyRecords[p] = newRec
	}

	if err := m.saveLocked(next); err != nil {
		return err
	}
	m.master = memguard.NewEnclave(bytes.Clone(newMaster))

	m.log.Infof("Master password changed, %d data keys re-wrapped", len(next.KeyRecords))
	m.record(SystemActor, audit.Update, "master password changed; %d data keys re-wrapped, recovery data invalidated", len(next.KeyRecords))
	return nil
}
