package config

import "testing"

func TestValidate_RejectsBadAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Addr = "not-a-host-port"
	if err := validate(cfg); err == nil {
		t.Error("expected validation error for malformed server.addr")
	}
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.LogLevel = "verbose"
	if err := validate(cfg); err == nil {
		t.Error("expected validation error for unknown log level")
	}
}

func TestValidate_AuthRequiresToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Token = ""
	if err := validate(cfg); err == nil {
		t.Error("expected validation error when auth is enabled without a token")
	}
}

func TestValidate_AuthAcceptsTokenRef(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Token = ""
	cfg.Auth.TokenRef = "env:MINIFY_AUTH_TOKEN"
	if err := validate(cfg); err != nil {
		t.Errorf("expected valid config with auth.token_ref set, got: %v", err)
	}
}

func TestValidate_NegativeTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.ReadTimeout = -1
	if err := validate(cfg); err == nil {
		t.Error("expected validation error for negative read timeout")
	}
}

func TestValidate_TracingRequiresKnownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "carrier-pigeon"
	if err := validate(cfg); err == nil {
		t.Error("expected validation error for unknown tracing exporter")
	}
}

func TestValidate_TracingSampleRateRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.SampleRate = 1.5
	if err := validate(cfg); err == nil {
		t.Error("expected validation error for out-of-range sample rate")
	}
}

func TestValidate_OKConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Token = "tok"
	if err := validate(cfg); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}
