package rules

import (
	"fmt"
	"os"

	"github.com/netweaver/nidcore/internal/alert"
	"gopkg.in/yaml.v3"
)

// rawRuleSet and rawRule mirror SignatureRule's shape but keep Severity
// and Action as plain strings, so the YAML surface stays human-writable
// ("severity: high") while the engine works with the typed forms.
type rawRuleSet struct {
	Rules []rawRule `yaml:"rules"`
}

type rawRule struct {
	ID          uint32 `yaml:"rule_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
	Action      string `yaml:"action"`
	Enabled     *bool  `yaml:"enabled"`

	Protocol    string `yaml:"protocol"`
	SrcIPFilter string `yaml:"src_ip_filter"`
	DstIPFilter string `yaml:"dst_ip_filter"`

	SrcPorts []uint16 `yaml:"src_ports"`
	DstPorts []uint16 `yaml:"dst_ports"`

	TCPFlagsMask  uint8 `yaml:"tcp_flags_mask"`
	TCPFlagsValue uint8 `yaml:"tcp_flags_value"`

	ContentPatterns []string `yaml:"content_patterns"`
	RegexPatterns   []string `yaml:"regex_patterns"`
}

// validActions mirrors the teacher's metricValidators approach: a small
// table of acceptable values checked once at load time rather than
// scattered across the match path.
var validActions = map[Action]bool{
	ActionAlert: true,
	ActionLog:   true,
	ActionDrop:  true,
}

var validProtocols = map[string]bool{
	"":     true,
	"tcp":  true,
	"udp":  true,
	"icmp": true,
}

// LoadFile reads a YAML rule file (spec.md's supplemental rule-loading
// feature; not present in the original distillation) and returns
// compiled, validated rules. A rule failing validation is an error for
// the whole file: partially-loaded rulesets would be worse than none.
func LoadFile(path string) ([]*SignatureRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: reading %s: %w", path, err)
	}
	var raw rawRuleSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rules: parsing %s: %w", path, err)
	}

	out := make([]*SignatureRule, 0, len(raw.Rules))
	for _, rr := range raw.Rules {
		rule, err := rr.resolve()
		if err != nil {
			return nil, fmt.Errorf("rules: %s: %w", path, err)
		}
		if err := rule.Compile(); err != nil {
			return nil, err
		}
		if rule.SrcIPReserved || rule.DstIPReserved {
			fmt.Fprintf(os.Stderr, "rules: warning: rule %d uses a CIDR IP filter, which is not supported and never matches\n", rule.ID)
		}
		out = append(out, rule)
	}
	return out, nil
}

func (rr rawRule) resolve() (*SignatureRule, error) {
	if rr.ID == 0 {
		return nil, fmt.Errorf("rule_id is required")
	}
	if !validProtocols[rr.Protocol] {
		return nil, fmt.Errorf("rule %d: invalid protocol %q", rr.ID, rr.Protocol)
	}

	sev := alert.SeverityLow
	if rr.Severity != "" {
		var err error
		sev, err = alert.ParseSeverity(rr.Severity)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rr.ID, err)
		}
	}

	action := ActionAlert
	if rr.Action != "" {
		action = Action(rr.Action)
		if !validActions[action] {
			return nil, fmt.Errorf("rule %d: invalid action %q", rr.ID, rr.Action)
		}
	}

	enabled := true
	if rr.Enabled != nil {
		enabled = *rr.Enabled
	}

	return &SignatureRule{
		ID:              rr.ID,
		Name:            rr.Name,
		Description:     rr.Description,
		Severity:        sev,
		Action:          action,
		Enabled:         enabled,
		Protocol:        rr.Protocol,
		SrcIPFilter:     rr.SrcIPFilter,
		DstIPFilter:     rr.DstIPFilter,
		SrcPorts:        rr.SrcPorts,
		DstPorts:        rr.DstPorts,
		TCPFlagsMask:    rr.TCPFlagsMask,
		TCPFlagsValue:   rr.TCPFlagsValue,
		ContentPatterns: rr.ContentPatterns,
		RegexPatterns:   rr.RegexPatterns,
	}, nil
}
