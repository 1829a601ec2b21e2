// Package relation extracts MAC-address/port relations from the
// fixed-layout table text returned by display mac-address queries.
package relation

import (
	"strings"

	"github.com/metalfabric/swadm/pkg/util"
)

// Relation is one learned MAC address and the port it was seen on.
type Relation struct {
	// MAC in canonical colon-separated lowercase-hex form,
	// e.g. "00:11:22:33:44:55".
	MAC string `json:"mac"`

	// Port is the device port or interface identifier.
	Port string `json:"port"`
}

// Table layout of the display mac-address response: a fixed number of
// header lines above the entries and summary lines below them.
const (
	headerLines  = 7
	trailerLines = 2
)

// minFields is the smallest token count a table line can have and still
// yield a MAC (field 0) and port (field 2).
const minFields = 3

// ParseTable parses the raw table text of one query response. Header and
// trailing summary lines are skipped; each remaining non-blank line is
// tokenized on whitespace. A line with too few fields is a
// MalformedOutputError rather than a silent skip, since truncated output
// means the response cannot be trusted.
func ParseTable(raw string) ([]Relation, error) {
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	if len(lines) <= headerLines+trailerLines {
		return nil, nil
	}
	lines = lines[headerLines : len(lines)-trailerLines]

	var relations []Relation
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < minFields {
			return nil, &util.MalformedOutputError{Line: line}
		}
		mac, err := canonicalMAC(fields[0])
		if err != nil {
			return nil, err
		}
		relations = append(relations, Relation{MAC: mac, Port: fields[2]})
	}
	return relations, nil
}

// canonicalMAC regroups a hyphen-grouped MAC token of 4-hex-digit blocks
// ("0011-2233-4455") into colon-separated 2-hex-digit groups
// ("00:11:22:33:44:55").
func canonicalMAC(token string) (string, error) {
	blocks := strings.Split(token, "-")
	if len(blocks) != 3 {
		return "", &util.MalformedOutputError{Line: token}
	}
	pairs := make([]string, 0, 6)
	for _, block := range blocks {
		if len(block) != 4 || !isHex(block) {
			return "", &util.MalformedOutputError{Line: token}
		}
		pairs = append(pairs, strings.ToLower(block[0:2]), strings.ToLower(block[2:4]))
	}
	return strings.Join(pairs, ":"), nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
