package progstor

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

const pidPattern = `^[a-zA-Z][-_a-zA-Z0-9]*$`

var pidRe = regexp.MustCompile(pidPattern)

// Pid identifies a program.
type Pid string

func ParsePid(raw string) (Pid, error) {
	if !pidRe.MatchString(raw) {
		return "", fmt.Errorf("invalid program ID: %q, must match %q", raw, pidPattern)
	}
	return Pid(raw), nil
}

// NewPid returns a fresh identifier for a newly created program.
func NewPid() Pid {
	return Pid("p-" + uuid.New().String())
}
