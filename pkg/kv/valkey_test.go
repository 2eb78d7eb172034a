package kv

import "testing"

func TestValkeyConfigDefaults(t *testing.T) {
	opts := ValkeyConfig{}.options()
	if opts.Addr != defaultAddr {
		t.Errorf("expected default addr %q, got %q", defaultAddr, opts.Addr)
	}
	if opts.DialTimeout != dialTimeout {
		t.Errorf("expected dial timeout %s, got %s", dialTimeout, opts.DialTimeout)
	}

	opts = ValkeyConfig{Addr: "valkey:6380", Password: "pw", DB: 2}.options()
	if opts.Addr != "valkey:6380" {
		t.Errorf("expected configured addr to win, got %q", opts.Addr)
	}
	if opts.Password != "pw" || opts.DB != 2 {
		t.Errorf("unexpected options: %+v", opts)
	}
}
