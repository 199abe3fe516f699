package schedule

import "time"

// A session is either Open or Locked. The explicit flag is one-way: no
// endpoint ever clears it. The automatic cutoff is computed fresh on
// every read, never persisted.

// EffectiveLocked reports whether the session is Locked at now: the
// explicit flag is set, or the automatic cutoff
// (start_at - auto_lock_minutes) has been reached.
func (s *Session) EffectiveLocked(now time.Time) bool {
	if s.IsLocked {
		return true
	}
	if s.AutoLockMinutes == nil {
		return false
	}
	cutoff := s.StartAt.Add(-time.Duration(*s.AutoLockMinutes) * time.Minute)
	return !now.Before(cutoff)
}

// RSVPWindowOpen reports whether attendance responses may still be
// written: the session is not Locked and its start has not passed. The
// start-time bound applies independently of lock state.
func (s *Session) RSVPWindowOpen(now time.Time) bool {
	if s.EffectiveLocked(now) {
		return false
	}
	return now.Before(s.StartAt)
}
