package rules

import "github.com/netweaver/nidcore/internal/alert"

// DefaultRules returns the six built-in signatures described in spec.md
// §4.6, compiled and ready to hand to NewEngine. Rules loaded from a YAML
// file (see loader.go) replace this set entirely in cmd/nidcore; they are
// not merged with it.
func DefaultRules() []*SignatureRule {
	rules := []*SignatureRule{
		{
			ID:            1001,
			Name:          "ssh-syn-probe",
			Description:   "TCP SYN to port 22 without ACK — SSH connection/probe attempt",
			Severity:      alert.SeverityLow,
			Action:        ActionAlert,
			Enabled:       true,
			Protocol:      "tcp",
			DstPorts:      []uint16{22},
			TCPFlagsMask:  0x12, // SYN|ACK bits
			TCPFlagsValue: 0x02, // SYN set, ACK clear
		},
		{
			ID:          1002,
			Name:        "http-sql-injection",
			Description: "SQL injection pattern in HTTP request payload",
			Severity:    alert.SeverityHigh,
			Action:      ActionAlert,
			Enabled:     true,
			Protocol:    "tcp",
			DstPorts:    []uint16{80, 8080},
			ContentPatterns: []string{
				"' or '1'='1",
				"or 1=1",
				"union select",
				"; drop table",
			},
		},
		{
			// No destination-port restriction: this rule flags the
			// SYN-without-ACK pattern toward any port, since a scan
			// sweeps across ports the operator cannot enumerate ahead of
			// time. Port 22 specifically also trips rule 1001.
			ID:            1003,
			Name:          "syn-scan",
			Description:   "Bare SYN (no ACK) — possible port scan",
			Severity:      alert.SeverityMedium,
			Action:        ActionAlert,
			Enabled:       true,
			Protocol:      "tcp",
			TCPFlagsMask:  0x12,
			TCPFlagsValue: 0x02,
		},
		{
			ID:          1004,
			Name:        "ftp-plaintext-credentials",
			Description: "Plaintext FTP USER/PASS command observed on the control channel",
			Severity:    alert.SeverityMedium,
			Action:      ActionAlert,
			Enabled:     true,
			Protocol:    "tcp",
			DstPorts:    []uint16{21},
			ContentPatterns: []string{
				"user ",
				"pass ",
			},
		},
		{
			ID:          1005,
			Name:        "dns-suspect",
			Description: "DNS traffic flagged for inspection",
			Severity:    alert.SeverityLow,
			Action:      ActionLog,
			Enabled:     false, // disabled by default; see DESIGN.md open question
			Protocol:    "udp",
			DstPorts:    []uint16{53},
		},
		{
			ID:          1006,
			Name:        "plaintext-telnet",
			Description: "Telnet session observed — credentials and session data travel in cleartext",
			Severity:    alert.SeverityMedium,
			Action:      ActionAlert,
			Enabled:     true,
			Protocol:    "tcp",
			DstPorts:    []uint16{23},
		},
	}
	for _, r := range rules {
		if err := r.Compile(); err != nil {
			// Default rules are part of the binary; a compile failure here
			// is a programming error, not an operator-facing condition.
			panic(err)
		}
	}
	return rules
}
