package keys

import (
	"bytes"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"

	"github.com/medeasy/medkeys/internal/audit"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keystore"
	"github.com/medeasy/medkeys/internal/secrets"
)

// MaxRotationIntervalDays bounds the base interval so that the longest
// derived interval (twice the base) fits in a time.Duration.
const MaxRotationIntervalDays = 36500

// DueSoonWindow is how far ahead of its due date a key counts as due soon.
const DueSoonWindow = 7 * 24 * time.Hour

// RotationStatus classifies a key by its rotation due date.
type RotationStatus int

const (
	UpToDate RotationStatus = iota
	DueSoon
	Overdue
	// Unknown is never returned by CheckRotationStatus. It exists for
	// listings that include purposes without metadata.
	Unknown
)

func (s RotationStatus) String() string {
	switch s {
	case UpToDate:
		return "up to date"
	case DueSoon:
		return "due soon"
	case Overdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// RotationInterval returns how long a key of purpose p stays current for a
// base interval in days. Database keys use the base, backup keys a third of
// it and field keys twice it.
func RotationInterval(p keystore.Purpose, baseDays int) time.Duration {
	base := time.Duration(baseDays) * 24 * time.Hour
	switch p {
	case keystore.Backup:
		return base / 3
	case keystore.FieldPatient, keystore.FieldSession, keystore.FieldTranscript:
		return base * 2
	default:
		return base
	}
}

// StatusAt classifies a due date relative to now.
func StatusAt(due, now time.Time) RotationStatus {
	d := due.Sub(now)
	switch {
	case d < 0:
		return Overdue
	case d < DueSoonWindow:
		return DueSoon
	default:
		return UpToDate
	}
}

// KeyStatus is one row of a key status listing.
type KeyStatus struct {
	Purpose      keystore.Purpose
	Status       RotationStatus
	Metadata     keystore.KeyMetadata
	DaysUntilDue int
}

// RotateKey replaces the data key for p with a fresh one. The new key is
// durable before it becomes visible; on failure the old key stays in effect
// on disk and in memory.
func (m *Manager) RotateKey(p keystore.Purpose, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return err
	}
	return m.rotateLocked(p, actorID)
}

func (m *Manager) rotateLocked(p keystore.Purpose, actorID string) error {
	if _, ok := m.store.KeyRecords[p]; !ok || !p.IsData() {
		return fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, p)
	}

	opID := uuid.NewString()
	m.record(actorID, audit.KeyRotation, "rotation of %s started (operation %s)", p, opID)

	version, err := m.replaceKeyLocked(p)
	if err != nil {
		m.record(actorID, audit.KeyRotation, "rotation of %s failed (operation %s): %v", p, opID, err)
		return err
	}

	m.log.Infof("Rotated %s key to version %d", p, version)
	m.record(actorID, audit.KeyRotation, "rotation of %s completed, now version %d (operation %s)", p, version, opID)
	return nil
}

func (m *Manager) replaceKeyLocked(p keystore.Purpose) (int, error) {
	master, release, err := m.openMasterLocked()
	if err != nil {
		return 0, err
	}
	defer release()

	dek, err := secrets.GenerateKey()
	if err != nil {
		return 0, err
	}
	defer memguard.WipeBytes(dek)

	rec, err := wrapKey(master, dek)
	if err != nil {
		return 0, err
	}

	now := m.timestamp()
	next := m.store.Clone()
	meta := next.Metadata[p]
	meta.LastRotatedAt = &now
	meta.RotationDueAt = now.Add(RotationInterval(p, m.cfg.RotationIntervalDays()))
	meta.Version++
	next.KeyRecords[p] = rec
	next.Metadata[p] = meta

	if err := m.saveLocked(next); err != nil {
		return 0, err
	}
	m.cache[p] = memguard.NewEnclave(bytes.Clone(dek))
	return meta.Version, nil
}

// CheckRotationStatus reports whether the key for p is up to date, due
// within DueSoonWindow, or overdue.
func (m *Manager) CheckRotationStatus(p keystore.Purpose) (RotationStatus, error) {
	meta, err := m.Metadata(p)
	if err != nil {
		return Unknown, err
	}
	return StatusAt(meta.RotationDueAt, m.now()), nil
}

// Metadata returns the rotation metadata for p.
func (m *Manager) Metadata(p keystore.Purpose) (keystore.KeyMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return keystore.KeyMetadata{}, err
	}
	meta, ok := m.store.Metadata[p]
	if !ok {
		return keystore.KeyMetadata{}, fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, p)
	}
	return meta, nil
}

// Status lists every data purpose with its rotation state.
func (m *Manager) Status() ([]KeyStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return nil, err
	}
	return m.statusLocked(), nil
}

func (m *Manager) statusLocked() []KeyStatus {
	now := m.now()
	var out []KeyStatus
	for _, p := range keystore.DataPurposes() {
		meta, ok := m.store.Metadata[p]
		if !ok {
			out = append(out, KeyStatus{Purpose: p, Status: Unknown})
			continue
		}
		out = append(out, KeyStatus{
			Purpose:      p,
			Status:       StatusAt(meta.RotationDueAt, now),
			Metadata:     meta,
			DaysUntilDue: int(meta.RotationDueAt.Sub(now) / (24 * time.Hour)),
		})
	}
	return out
}

// RotateDue rotates every overdue key and returns the purposes rotated. It
// stops at the first failure.
func (m *Manager) RotateDue(actorID string) ([]keystore.Purpose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return nil, err
	}

	var rotated []keystore.Purpose
	for _, s := range m.statusLocked() {
		if s.Status != Overdue {
			continue
		}
		if err := m.rotateLocked(s.Purpose, actorID); err != nil {
			return rotated, err
		}
		rotated = append(rotated, s.Purpose)
	}
	return rotated, nil
}
