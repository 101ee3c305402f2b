package enums

import (
	"fmt"
	"strings"
)

// ChangeOp is the row-level operation carried by a realtime change.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

var validChangeOps = []ChangeOp{ChangeInsert, ChangeUpdate, ChangeDelete}

// IsValid reports whether the value is a known ChangeOp.
func (c ChangeOp) IsValid() bool {
	for _, candidate := range validChangeOps {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChangeOp accepts both lower and upper case (Postgres TG_OP) spellings.
func ParseChangeOp(value string) (ChangeOp, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validChangeOps {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid change op %q", value)
}
