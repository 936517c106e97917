// Package rules implements the signature-based detection engine described
// in spec.md §3/§4.6: a short-circuiting predicate chain evaluated per
// packet against a loaded set of SignatureRules.
package rules

import (
	"regexp"
	"strings"

	"github.com/netweaver/nidcore/internal/alert"
)

// Action is what an engine should do when a rule matches.
type Action string

const (
	ActionAlert Action = "alert"
	ActionLog   Action = "log"
	ActionDrop  Action = "drop" // recorded only; this revision never drops packets
)

// contentWindow bounds how much of the payload content/regex matching
// examines, per spec.md §4.6 step 5/6.
const contentWindow = 1024

// SignatureRule is one entry in the ruleset, matching spec.md §3's field
// list. All filter fields are optional; an empty/zero filter always
// passes (it imposes no constraint), matching spec.md §4.6 step ordering.
type SignatureRule struct {
	ID          uint32         `yaml:"rule_id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Severity    alert.Severity `yaml:"severity"`
	Action      Action         `yaml:"action"`
	Enabled     bool           `yaml:"enabled"`

	Protocol string `yaml:"protocol"` // "tcp", "udp", "icmp", "" (any)

	// SrcIPFilter/DstIPFilter are "" or "any" (no constraint), a literal
	// IP address (exact equality), or CIDR-shaped (contains "/"). Per
	// spec.md §9, CIDR matching is reserved and never matches; such a
	// filter is inert and produces a one-time warning at load, tracked
	// via SrcIPReserved/DstIPReserved below.
	SrcIPFilter string `yaml:"src_ip_filter"`
	DstIPFilter string `yaml:"dst_ip_filter"`

	SrcPorts []uint16 `yaml:"src_ports"` // empty slice == any
	DstPorts []uint16 `yaml:"dst_ports"`

	TCPFlagsMask  uint8 `yaml:"tcp_flags_mask"`  // bits to examine
	TCPFlagsValue uint8 `yaml:"tcp_flags_value"` // required value of those bits

	// ContentPatterns and RegexPatterns are OR'd: a rule matches if ANY
	// one pattern hits, and the first one that hits is cited as
	// matched_content (spec.md §4.6 steps 5/6).
	ContentPatterns []string `yaml:"content_patterns"`
	RegexPatterns   []string `yaml:"regex_patterns"`

	// SrcIPReserved/DstIPReserved are true when the corresponding filter
	// is CIDR-shaped and therefore permanently inert.
	SrcIPReserved bool
	DstIPReserved bool

	// InvalidRegexCount is incremented for each regex_pattern that failed
	// to compile; those patterns are skipped silently per spec.md §4.6
	// step 6 ("invalid regexes are skipped silently but counted").
	InvalidRegexCount int

	lowerContent []string
	regex        []*regexp.Regexp
}

func looksLikeCIDR(filter string) bool {
	return strings.Contains(filter, "/")
}

// Compile lowercases content_patterns and compiles regex_patterns once,
// so the hot-path match loop never touches strings.ToLower or
// regexp.Compile. It never fails: an invalid regex is dropped and
// counted rather than rejecting the whole rule, matching spec.md §4.6.
func (r *SignatureRule) Compile() error {
	r.SrcIPReserved = looksLikeCIDR(r.SrcIPFilter)
	r.DstIPReserved = looksLikeCIDR(r.DstIPFilter)

	r.lowerContent = make([]string, len(r.ContentPatterns))
	for i, pat := range r.ContentPatterns {
		r.lowerContent[i] = strings.ToLower(pat)
	}

	r.regex = make([]*regexp.Regexp, 0, len(r.RegexPatterns))
	for _, pat := range r.RegexPatterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			r.InvalidRegexCount++
			continue
		}
		r.regex = append(r.regex, re)
	}
	return nil
}
