// Package rgit is the versioned-document core: resumes, branches, the commit
// graph, editing sessions and snapshot comparison.
package rgit

import (
	"sync"
	"time"

	"rgit-go/internal/diff"
	"rgit-go/internal/metrics"
	"rgit-go/internal/snapshot"
)

// Service coordinates the database, the snapshot vault and the diff engine
// to perform the operations needed by the CLI.
//
// It is safe for concurrent use. Branch creation and deletion and workspace
// edits are serialized per resume; commits rely on the database's
// compare-and-swap of the branch tip.
type Service struct {
	database  Database
	vault     Vault
	encryptor Encryptor
	metrics   *metrics.Metrics
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	locks resumeLocks

	diffMatch diff.Match

	unlockMu   sync.Mutex
	passphrase PassphraseFunc
	decryptor  DecryptionContext

	// Snapshots are immutable, so decoded ones are cached by hash.
	cache sync.Map
}

// NewService creates a Service. encryptor may be nil to store snapshots in
// plaintext, and m may be nil to disable metrics.
func NewService(database Database, vault Vault, encryptor Encryptor, m *metrics.Metrics, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		database:  database,
		vault:     vault,
		encryptor: encryptor,
		metrics:   m,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		diffMatch: diff.MatchPosition,
	}
}

// SetDiffMatch sets the list matching strategy used when callers do not pass
// one explicitly.
func (s *Service) SetDiffMatch(m diff.Match) {
	s.diffMatch = m
}

// SetPassphraseSource registers the callback used to unlock the private key
// the first time an encrypted snapshot is read.
func (s *Service) SetPassphraseSource(fn PassphraseFunc) {
	s.unlockMu.Lock()
	defer s.unlockMu.Unlock()
	s.passphrase = fn
}

// observe records an operation's outcome. Use as
// defer s.observe("op", s.clock.Now(), &err).
func (s *Service) observe(op string, start time.Time, errp *error) {
	s.metrics.RecordOperation(op, *errp, s.clock.Now().Sub(start))
}

func (s *Service) diffOptions(opts []diff.Option) []diff.Option {
	return append([]diff.Option{diff.WithMatch(s.diffMatch)}, opts...)
}

func (s *Service) cached(hash string) (*snapshot.Snapshot, bool) {
	v, ok := s.cache.Load(hash)
	if !ok {
		return nil, false
	}
	return v.(*snapshot.Snapshot), true
}

// resumeLocks serializes mutations that must not interleave within one
// resume, such as branch creation and deletion.
type resumeLocks struct {
	mu    sync.Mutex
	locks map[string]*resumeLock
}

type resumeLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the resume's lock and returns its release function.
func (l *resumeLocks) lock(resumeID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*resumeLock)
	}
	rl, ok := l.locks[resumeID]
	if !ok {
		rl = &resumeLock{}
		l.locks[resumeID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, resumeID)
		}
		l.mu.Unlock()
	}
}
