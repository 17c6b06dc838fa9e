package membership

import (
	"fmt"
	"strconv"
	"strings"
)

// LeaderMemberSeq is the per-node sequence reserved for the leader seat
const LeaderMemberSeq = 0

var nodeTypePrefixes = map[NodeType]string{
	NodeTypeCivilSociety: "A",
	NodeTypeBusiness:     "E",
	NodeTypeScientific:   "C",
	NodeTypePublicSector: "F",
	NodeTypeIndividual:   "I",
}

// NodeCodePrefix maps a node type to its single-letter code prefix
func NodeCodePrefix(t NodeType) (string, error) {
	prefix, ok := nodeTypePrefixes[t]
	if !ok {
		return "", ErrInvalidNodeType.WithMetadata(map[string]any{
			"node_type": string(t),
		})
	}
	return prefix, nil
}

// FormatNodeCode renders a node code like C01. The sequence is zero padded
// to two digits and grows naturally past 99.
func FormatNodeCode(prefix string, seq int) string {
	return fmt.Sprintf("%s%02d", prefix, seq)
}

// FormatMemberCode renders a member code like C01.04. Sequence 00 is the
// leader seat.
func FormatMemberCode(nodeCode string, seq int) string {
	return fmt.Sprintf("%s.%02d", nodeCode, seq)
}

// NodeCodeSeq extracts the numeric part of a node code. The sequence is
// global across node types: the prefix letter is ignored.
func NodeCodeSeq(code string) (int, error) {
	if len(code) < 2 {
		return 0, fmt.Errorf("node code too short: %q", code)
	}
	return strconv.Atoi(code[1:])
}

// MemberCodeSeq extracts the per-node sequence from a member code
func MemberCodeSeq(code string) (int, error) {
	idx := strings.LastIndex(code, ".")
	if idx < 0 || idx == len(code)-1 {
		return 0, fmt.Errorf("malformed member code: %q", code)
	}
	return strconv.Atoi(code[idx+1:])
}

// MemberCodeNode returns the node code portion of a member code
func MemberCodeNode(code string) (string, error) {
	idx := strings.LastIndex(code, ".")
	if idx <= 0 {
		return "", fmt.Errorf("malformed member code: %q", code)
	}
	return code[:idx], nil
}

// maxNodeSeq folds a list of node codes into the highest sequence seen.
// Unparseable codes are skipped so one bad row cannot wedge onboarding.
func maxNodeSeq(codes []string) int {
	max := 0
	for _, code := range codes {
		seq, err := NodeCodeSeq(code)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max
}

// maxMemberSeq folds member codes into the highest per-node sequence seen
func maxMemberSeq(codes []string) int {
	max := 0
	for _, code := range codes {
		seq, err := MemberCodeSeq(code)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max
}
