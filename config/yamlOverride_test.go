package config

import "testing"

func TestApplyYAMLOverride(t *testing.T) {
	base := DiameterPeer{
		DiameterHost:            "client.test",
		WatchdogIntervalMillis:  30000,
		ConnectionTimeoutMillis: 5000,
		Persistent:              false,
		OverrideYAML: `
watchdogIntervalMillis: 8000
persistent: true
requireTLS: true
`,
	}

	overridden, err := applyYAMLOverride(base)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if overridden.WatchdogIntervalMillis != 8000 {
		t.Errorf("WatchdogIntervalMillis was not overridden: %d", overridden.WatchdogIntervalMillis)
	}
	if !overridden.Persistent {
		t.Errorf("Persistent was not overridden to true")
	}
	if !overridden.RequireTLS {
		t.Errorf("RequireTLS was not overridden to true")
	}
	// Untouched by the override block
	if overridden.ConnectionTimeoutMillis != 5000 {
		t.Errorf("ConnectionTimeoutMillis should be unchanged: %d", overridden.ConnectionTimeoutMillis)
	}
}

func TestApplyYAMLOverrideEmpty(t *testing.T) {
	base := DiameterPeer{DiameterHost: "client.test", WatchdogIntervalMillis: 30000}
	overridden, err := applyYAMLOverride(base)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if overridden.WatchdogIntervalMillis != 30000 {
		t.Errorf("peer without an override block should be returned unchanged")
	}
}

func TestApplyYAMLOverrideBadYAML(t *testing.T) {
	base := DiameterPeer{DiameterHost: "client.test", OverrideYAML: "not: [valid yaml"}
	if _, err := applyYAMLOverride(base); err == nil {
		t.Errorf("expected an error parsing malformed override yaml")
	}
}
