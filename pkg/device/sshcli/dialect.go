package sshcli

import (
	"regexp"

	"github.com/newtron-network/newtboot/pkg/topology"
)

// promptRE matches an operational or configuration prompt at the end of
// the output, e.g. "admin@vmx1> ", "RP/0/RP0/CPU0:xrv1(config)#", "csr1#".
var promptRE = regexp.MustCompile(`[\w.\-@/:]+(\([\w.\-/]+\))?[>#%]\s*$`)

// Dialect describes how one device family's CLI stages and commits
// configuration.
type Dialect struct {
	Family  topology.Family
	Prompt  *regexp.Regexp
	Failure *regexp.Regexp

	Setup []string // session setup, e.g. disable paging
	Enter []string // enter candidate configuration mode

	// LoadStart/LoadEnd bracket a bulk load. When LoadStart is empty the
	// candidate is sent line by line.
	LoadStart string
	LoadEnd   string

	Compare []string
	Commit  []string
	Discard []string

	// Local marks families without a candidate datastore: the candidate is
	// held by the driver and applied line by line on commit. Compare then
	// runs the Compare commands to fetch the running configuration and
	// reports the candidate lines it lacks.
	Local bool

	// RetryOn lists the open failure kinds that mean "still booting".
	RetryOn []error
}

var bootKinds = []error{ErrConnRefused, ErrConnReset, ErrHostUnreachable, ErrDialTimeout, ErrHandshake}

var dialects = map[topology.Family]*Dialect{
	topology.FamilyJunos: {
		Family:    topology.FamilyJunos,
		Prompt:    promptRE,
		Failure:   regexp.MustCompile(`(?m)^\s*(error:|syntax error|missing mandatory statement|commit failed)`),
		Setup:     []string{"set cli screen-length 0", "set cli screen-width 0"},
		Enter:     []string{"configure private"},
		LoadStart: "load set terminal",
		LoadEnd:   "\x04",
		Compare:   []string{"show | compare"},
		Commit:    []string{"commit and-quit"},
		Discard:   []string{"rollback 0", "exit configuration-mode"},
		RetryOn:   bootKinds,
	},
	topology.FamilyIOSXR: {
		Family:  topology.FamilyIOSXR,
		Prompt:  promptRE,
		Failure: regexp.MustCompile(`(?m)^\s*% ?(Invalid|Incomplete|Ambiguous|Failed)`),
		Setup:   []string{"terminal length 0", "terminal width 0"},
		Enter:   []string{"configure exclusive"},
		Compare: []string{"show commit changes diff"},
		Commit:  []string{"commit", "end"},
		Discard: []string{"abort"},
		// XR accepts SSH before AAA is up and rejects logins meanwhile.
		RetryOn: append(append([]error(nil), bootKinds...), ErrAuthRejected),
	},
	topology.FamilyIOSXE: {
		Family:  topology.FamilyIOSXE,
		Prompt:  promptRE,
		Failure: regexp.MustCompile(`(?m)^\s*% ?(Invalid|Incomplete|Ambiguous)`),
		Setup:   []string{"terminal length 0", "terminal width 0"},
		Enter:   []string{"configure terminal"},
		Compare: []string{"show running-config"},
		Commit:  []string{"end", "write memory"},
		Local:   true,
		RetryOn: bootKinds,
	},
}

// DialectFor returns the dialect for a device family.
func DialectFor(family topology.Family) (*Dialect, bool) {
	d, ok := dialects[family]
	return d, ok
}

// RetryOn returns the retryable open failure kinds for a family.
func RetryOn(family topology.Family) []error {
	if d, ok := dialects[family]; ok {
		return d.RetryOn
	}
	return nil
}
