package remote

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"regexp"
	"strings"
	"syscall"
)

var (
	// ErrClosed is returned once the manager has been shut down. Like
	// ErrNotConnected it classifies as transient: a shutdown races with an
	// in-flight statement, and the worker must absorb the failure and exit
	// through its stop check rather than fail the job.
	ErrClosed = errors.New("remote: connection manager closed")
	// ErrNotConnected is returned when no connection has been established
	// yet. It classifies as transient so the processor enters its normal
	// reconnect loop instead of failing jobs.
	ErrNotConnected = errors.New("remote: not connected")
)

// Class is the stable failure taxonomy the processor branches on.
type Class int

const (
	// ClassTransient covers endpoint unreachable, timeouts and recoverably
	// broken connections. Reconnect and re-attempt, without bound.
	ClassTransient Class = iota
	// ClassAlreadyExists means a create statement collided with an existing
	// remote object.
	ClassAlreadyExists
	// ClassMissingDatabase means the statement references a database absent
	// on the remote side.
	ClassMissingDatabase
	// ClassFatal is everything else: discard the job and move on.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassAlreadyExists:
		return "already_exists"
	case ClassMissingDatabase:
		return "missing_database"
	default:
		return "fatal"
	}
}

// Endpoint drivers surface most failures as generic errors distinguished only
// by message text, so the fragile substring matching lives here and nowhere
// else.
var transientFragments = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"operation timed out",
	"no such host",
	"unexpected eof",
	"server closed",
	"database is closed",
}

var alreadyExistsFragments = []string{
	"alreadyexistsexception",
	"already exists",
}

var (
	// Original agent-era endpoint phrasing: "... Database does not exist: db"
	missingDBColonPattern = regexp.MustCompile(`(?i)database does not exist:\s*'?([\w]+)'?`)
	// Trino/Presto phrasing: "Schema 'db' does not exist"
	missingDBQuotedPattern = regexp.MustCompile(`(?i)(?:database|schema) '?([\w]+)'? does not exist`)
)

// Classify maps an execution error onto the failure taxonomy. Typed checks
// run first; free-text matching is the fallback the drivers impose.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrClosed) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return ClassTransient
		}
	}
	if missingDBColonPattern.MatchString(msg) || missingDBQuotedPattern.MatchString(msg) {
		return ClassMissingDatabase
	}
	for _, fragment := range alreadyExistsFragments {
		if strings.Contains(msg, fragment) {
			return ClassAlreadyExists
		}
	}

	return ClassFatal
}

// MissingDatabaseName extracts the database name from a missing-database
// error. ok=false when the text carries no recognizable name.
func MissingDatabaseName(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	for _, pattern := range []*regexp.Regexp{missingDBColonPattern, missingDBQuotedPattern} {
		if m := pattern.FindStringSubmatch(err.Error()); m != nil {
			return m[1], true
		}
	}
	return "", false
}
