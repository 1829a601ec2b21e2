// Package dialect describes the CLI grammar family a switch speaks: its
// error markers, prompt conventions, and mode-switching commands. The
// execution pipeline is dialect-agnostic; everything vendor-specific about
// recognizing success or failure lives here.
package dialect

import (
	"strings"

	"github.com/metalfabric/swadm/pkg/util"
)

// Dialect holds the per-vendor CLI conventions needed to drive a device
// and interpret its free-text responses.
type Dialect struct {
	// Name is the registry tag, e.g. "huawei".
	Name string

	// ErrorMarkers is the ordered, case-sensitive set of substrings that
	// indicate device-reported failure. The device CLI has no structured
	// ack/nak; absence of all markers is the only success signal.
	ErrorMarkers []string

	// PromptSuffixes are the characters that terminate a CLI prompt line,
	// used to detect the end of a command's output.
	PromptSuffixes []string

	// QueryPrefix identifies read-only commands by name. Commands with
	// this prefix run in the raw query mode; everything else runs in
	// configuration mode.
	QueryPrefix string

	// ConfigEnter and ConfigExit switch the session in and out of
	// configuration mode.
	ConfigEnter string
	ConfigExit  string

	// QuitCommand leaves the current view one level at a time. A batch
	// whose last line is the quit command ends back at the user view.
	QuitCommand string

	// SaveCommand persists the running configuration; SaveConfirm answers
	// the device's confirmation prompt.
	SaveCommand string
	SaveConfirm string
}

// IsQuery reports whether cmd is a read-only display-class command.
func (d *Dialect) IsQuery(cmd string) bool {
	return strings.HasPrefix(strings.TrimSpace(cmd), d.QueryPrefix)
}

// CheckOutput scans output against the dialect's error markers. The first
// match produces a DeviceRejectedError carrying the offending command and
// raw output. Empty output is success.
func (d *Dialect) CheckOutput(command, output string) error {
	if output == "" {
		return nil
	}
	for _, marker := range d.ErrorMarkers {
		if strings.Contains(output, marker) {
			return &util.DeviceRejectedError{Command: command, Output: output}
		}
	}
	return nil
}

var registry = map[string]*Dialect{}

// Register adds a dialect to the registry. Called from init().
func Register(d *Dialect) {
	registry[d.Name] = d
}

// Lookup returns the registered dialect for the given tag, or an
// UnsupportedDialectError if the tag is unknown.
func Lookup(name string) (*Dialect, error) {
	d, ok := registry[name]
	if !ok {
		return nil, &util.UnsupportedDialectError{Dialect: name}
	}
	return d, nil
}
