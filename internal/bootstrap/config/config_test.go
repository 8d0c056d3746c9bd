package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"referralhub/internal/domain/referral"
)

func writeFile(t *testing.T, name string, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaultsAndFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
database:
  dsn: test.sqlite
notify:
  driver: smtp
  admin_emails: [ops@example.com]
  smtp:
    host: smtp.example.com
    sender: noreply@example.com
cache:
  narrative_ttl: 2h
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "test.sqlite" {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.Fees.DefaultCommissionBps != 300 {
		t.Fatalf("default commission = %d", cfg.Fees.DefaultCommissionBps)
	}
	if cfg.Cache.NarrativeTTL != 2*time.Hour {
		t.Fatalf("narrative ttl = %s", cfg.Cache.NarrativeTTL)
	}
	if cfg.Notify.Driver != "smtp" || cfg.Notify.SMTP.Port != 465 || len(cfg.Notify.AdminEmails) != 1 {
		t.Fatalf("notify = %+v", cfg.Notify)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Auth.Mode != "jwt" {
		t.Fatalf("http/auth = %+v / %+v", cfg.HTTP, cfg.Auth)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "database:\n  dsn: file.sqlite\n")
	t.Setenv("RH_DATABASE_DSN", "env.sqlite")
	t.Setenv("RH_FEES_DEFAULT_COMMISSION_BPS", "250")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "env.sqlite" || cfg.Fees.DefaultCommissionBps != 250 {
		t.Fatalf("cfg = %+v / %+v", cfg.Database, cfg.Fees)
	}
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	cases := map[string]string{
		"cache":  "cache:\n  driver: memcached\n",
		"redis":  "cache:\n  driver: redis\n",
		"notify": "notify:\n  driver: pigeon\n",
		"auth":   "auth:\n  mode: none\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(context.Background(), writeFile(t, "config.yaml", body)); err == nil {
				t.Fatalf("Load() expected error")
			}
		})
	}
}

func TestParseSLAPolicy(t *testing.T) {
	policy, err := ParseSLAPolicy([]byte(`
first_contact = "12h"
stall = "10d"
`))
	if err != nil {
		t.Fatalf("ParseSLAPolicy() error = %v", err)
	}
	defaults := referral.DefaultSLAPolicy()
	if policy.FirstContactWindow != 12*time.Hour {
		t.Fatalf("first contact = %s", policy.FirstContactWindow)
	}
	if policy.StallThreshold != 10*24*time.Hour {
		t.Fatalf("stall = %s", policy.StallThreshold)
	}
	if policy.PayoutWindow != defaults.PayoutWindow {
		t.Fatalf("payout = %s, want default %s", policy.PayoutWindow, defaults.PayoutWindow)
	}

	for _, bad := range []string{`stall = "soon"`, `payout = "0d"`, `check_in = "-1h"`} {
		if _, err := ParseSLAPolicy([]byte(bad)); err == nil {
			t.Fatalf("ParseSLAPolicy(%q) expected error", bad)
		}
	}
}

func TestLoadSLAPolicyDefaultsWithoutFile(t *testing.T) {
	policy, err := LoadSLAPolicy("")
	if err != nil {
		t.Fatalf("LoadSLAPolicy() error = %v", err)
	}
	if policy != referral.DefaultSLAPolicy() {
		t.Fatalf("LoadSLAPolicy() = %+v", policy)
	}
}
