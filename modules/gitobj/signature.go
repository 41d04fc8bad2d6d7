package gitobj

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature identifies an author or committer: a name, an email, and the
// instant the action happened, always rendered with a fixed UTC offset
// since this system never tracks the original commit's local timezone.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d +0000", s.Name, s.Email, s.When.Unix())
}

// ParseSignature parses a "Name <email> unixts tz" line as found in a
// commit or tag object.
func ParseSignature(line string) (Signature, error) {
	lt := strings.LastIndexByte(line, '<')
	gt := strings.LastIndexByte(line, '>')
	if lt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("gitobj: malformed signature: %q", line)
	}
	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]

	rest := strings.TrimSpace(line[gt+1:])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Signature{}, fmt.Errorf("gitobj: malformed signature timestamp: %q", line)
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("gitobj: malformed signature timestamp: %w", err)
	}

	return Signature{Name: name, Email: email, When: time.Unix(ts, 0).UTC()}, nil
}
