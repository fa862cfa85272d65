package config

import "testing"

func TestApplySettingsOverlay(t *testing.T) {
	cfg := &Config{
		Daraja: DarajaConfig{
			ConsumerKey: "env-key",
			Shortcode:   "174379",
			Sandbox:     true,
		},
	}

	cfg.ApplySettings(map[string]string{
		SettingConsumerKey:     "db-key",
		SettingConsumerSecret:  "db-secret",
		SettingSandbox:         "no",
		SettingCallbackBaseURL: "https://shop.example.com",
		"unrelated_key":        "ignored",
	})

	if cfg.Daraja.ConsumerKey != "db-key" {
		t.Fatalf("consumer key not overlaid: %q", cfg.Daraja.ConsumerKey)
	}
	if cfg.Daraja.ConsumerSecret != "db-secret" {
		t.Fatalf("consumer secret not overlaid: %q", cfg.Daraja.ConsumerSecret)
	}
	if cfg.Daraja.Sandbox {
		t.Fatal("sandbox should be switched off")
	}
	if cfg.Daraja.CallbackBaseURL != "https://shop.example.com" {
		t.Fatalf("callback base url not overlaid: %q", cfg.Daraja.CallbackBaseURL)
	}
	if cfg.Daraja.Shortcode != "174379" {
		t.Fatalf("shortcode should be untouched, got %q", cfg.Daraja.Shortcode)
	}
}

func TestApplySettingsIgnoresEmptyValues(t *testing.T) {
	cfg := &Config{Daraja: DarajaConfig{ConsumerKey: "env-key"}}
	cfg.ApplySettings(map[string]string{SettingConsumerKey: ""})
	if cfg.Daraja.ConsumerKey != "env-key" {
		t.Fatalf("empty stored value must not clobber env value, got %q", cfg.Daraja.ConsumerKey)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "Yes", " on "} {
		if !truthy(v) {
			t.Errorf("truthy(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		if truthy(v) {
			t.Errorf("truthy(%q) = true", v)
		}
	}
}
