package identity

import (
	"fmt"
	"strconv"
	"strings"

	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/core/ports"
)

const (
	uidPrefix   = "uid:"
	unamePrefix = "uname:"

	// UnknownActor is the key of a message with neither user id nor username.
	UnknownActor = "unknown"
)

// ActorKey builds "uid:<id>" when a user id is present, else "uname:<username>".
// Usernames are keyed as received, including the leading "@".
func ActorKey(userID *int64, username string) string {
	if userID != nil && *userID != 0 {
		return uidPrefix + strconv.FormatInt(*userID, 10)
	}

	if username != "" {
		return unamePrefix + username
	}

	return UnknownActor
}

// ParseActorKey splits an actor key back into the event fields it matches.
func ParseActorKey(key string) (ports.ActorMatch, error) {
	switch {
	case strings.HasPrefix(key, uidPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(key, uidPrefix), 10, 64)
		if err != nil {
			return ports.ActorMatch{}, fmt.Errorf("parse %q: %w", key, errs.ErrInvalidActorKey)
		}

		return ports.ActorMatch{UserID: &id}, nil
	case strings.HasPrefix(key, unamePrefix):
		name := strings.TrimPrefix(key, unamePrefix)
		if name == "" {
			return ports.ActorMatch{}, fmt.Errorf("parse %q: %w", key, errs.ErrInvalidActorKey)
		}

		return ports.ActorMatch{Username: name}, nil
	default:
		return ports.ActorMatch{}, fmt.Errorf("parse %q: %w", key, errs.ErrInvalidActorKey)
	}
}

// NextEmployeeID returns the id following last, e.g. RD-007 after RD-006.
// An unparseable or empty last id restarts numbering at 1.
func NextEmployeeID(prefix, last string) string {
	n := 0

	if strings.HasPrefix(last, prefix) {
		if parsed, err := strconv.Atoi(strings.TrimPrefix(last, prefix)); err == nil {
			n = parsed
		}
	}

	return fmt.Sprintf("%s%03d", prefix, n+1)
}
