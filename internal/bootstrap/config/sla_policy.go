package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"referralhub/internal/domain/referral"
	"referralhub/internal/errs"
)

// slaPolicyFile is the TOML layout of an SLA policy. Windows accept Go
// durations plus a whole-day form such as "14d".
type slaPolicyFile struct {
	FirstContact  string `toml:"first_contact"`
	MCContact     string `toml:"mc_contact"`
	Stall         string `toml:"stall"`
	CheckIn       string `toml:"check_in"`
	ClosingCheck  string `toml:"closing_check"`
	Payout        string `toml:"payout"`
	Documentation string `toml:"documentation"`
}

// LoadSLAPolicy reads path, falling back to the default policy for an empty
// path and for any window the file leaves out.
func LoadSLAPolicy(path string) (referral.SLAPolicy, error) {
	policy := referral.DefaultSLAPolicy()
	path = strings.TrimSpace(path)
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return referral.SLAPolicy{}, errs.Wrapf(err, "read sla policy %s", path)
	}
	return ParseSLAPolicy(raw)
}

func ParseSLAPolicy(raw []byte) (referral.SLAPolicy, error) {
	var file slaPolicyFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return referral.SLAPolicy{}, errs.Wrap(err, "decode sla policy")
	}

	policy := referral.DefaultSLAPolicy()
	windows := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"first_contact", file.FirstContact, &policy.FirstContactWindow},
		{"mc_contact", file.MCContact, &policy.MCContactWindow},
		{"stall", file.Stall, &policy.StallThreshold},
		{"check_in", file.CheckIn, &policy.CheckInWindow},
		{"closing_check", file.ClosingCheck, &policy.ClosingCheckWindow},
		{"payout", file.Payout, &policy.PayoutWindow},
		{"documentation", file.Documentation, &policy.DocumentationWindow},
	}
	for _, w := range windows {
		if strings.TrimSpace(w.raw) == "" {
			continue
		}
		d, err := parseWindow(w.raw)
		if err != nil {
			return referral.SLAPolicy{}, fmt.Errorf("sla policy %s: %w", w.name, err)
		}
		*w.target = d
	}
	return policy, nil
}

func parseWindow(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day window %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("window %q must be positive", raw)
	}
	return d, nil
}
