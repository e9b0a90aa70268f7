package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAnswerID renders the canonical auto-assigned answer id
// "a_<nodeID>_<seq>".
func FormatAnswerID(nodeID, seq int) string {
	return fmt.Sprintf("a_%d_%d", nodeID, seq)
}

// ParseAnswerSeq extracts the sequence number from an auto-assigned answer
// id belonging to nodeID. It returns false for hand-written or foreign ids,
// which simply do not participate in counter recovery.
func ParseAnswerSeq(id string, nodeID int) (int, bool) {
	prefix := fmt.Sprintf("a_%d_", nodeID)
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return 0, false
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
