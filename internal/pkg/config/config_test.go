package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func baseEnv() map[string]string {
	return map[string]string{
		"JWT_SIGNING_KEY": "0123456789abcdef0123456789abcdef",
		"JWT_ISSUER":      "orderdesk",
		"JWT_AUDIENCE":    "orderdesk-clients",
	}
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(baseEnv()))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}

	if cfg.Port != "8080" || cfg.HubPort != "5000" {
		t.Fatalf("unexpected ports %s/%s", cfg.Port, cfg.HubPort)
	}
	if cfg.AuthzPolicy != "strict" || cfg.Notify.Mode != "hub" || cfg.Store != "mongo" {
		t.Fatalf("unexpected modes: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://localhost:7071" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.Notify.RetryBase != time.Second || cfg.Notify.Workers != 4 {
		t.Fatalf("unexpected notify config %+v", cfg.Notify)
	}
	if !cfg.SeedData || cfg.Redis.Addr != "" {
		t.Fatalf("unexpected seed/redis config")
	}
	if cfg.Env != "production" || cfg.IsDevelopment() {
		t.Fatalf("expected production by default, got %q", cfg.Env)
	}

	tc := cfg.TokenConfig()
	if tc.Lifetime != 60*time.Minute || tc.Issuer != "orderdesk" || tc.SkipValidation {
		t.Fatalf("unexpected token config %+v", tc)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	env := baseEnv()
	env["AUTHZ_POLICY"] = "Owner"
	env["NOTIFY_MODE"] = "log"
	env["STORE"] = "memory"
	env["ENV"] = "production"
	env["JWT_TOKEN_LIFETIME_MINUTES"] = "15"

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.AuthzPolicy != "owner" || cfg.Notify.Mode != "log" || cfg.Store != "memory" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("production must not be development")
	}

	env["ENV"] = "Development"
	cfg, err = LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("ENV=Development must enable development mode")
	}
	if cfg.TokenConfig().Lifetime != 15*time.Minute {
		t.Fatalf("unexpected lifetime %s", cfg.TokenConfig().Lifetime)
	}
}

func TestLoadWith_FailsFast(t *testing.T) {
	cases := map[string]func(map[string]string){
		"JWT_SIGNING_KEY":            func(e map[string]string) { e["JWT_SIGNING_KEY"] = "short" },
		"JWT_ISSUER":                 func(e map[string]string) { delete(e, "JWT_ISSUER") },
		"JWT_AUDIENCE":               func(e map[string]string) { delete(e, "JWT_AUDIENCE") },
		"JWT_TOKEN_LIFETIME_MINUTES": func(e map[string]string) { e["JWT_TOKEN_LIFETIME_MINUTES"] = "0" },
		"AUTHZ_POLICY":               func(e map[string]string) { e["AUTHZ_POLICY"] = "everyone" },
		"NOTIFY_MODE":                func(e map[string]string) { e["NOTIFY_MODE"] = "email" },
		"STORE":                      func(e map[string]string) { e["STORE"] = "postgres" },
	}

	for name, mutate := range cases {
		env := baseEnv()
		mutate(env)
		_, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("%s: error does not name the variable: %v", name, err)
		}
	}
}
