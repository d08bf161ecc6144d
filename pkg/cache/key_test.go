package cache

import (
	"strings"
	"testing"
)

func TestKeyDeterministic(t *testing.T) {
	k1 := Key("u1", "hello")
	k2 := Key("u1", "hello")
	if k1 != k2 {
		t.Error("same input must produce the same key")
	}
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key("u1", "hello")

	if Key("u2", "hello") == base {
		t.Error("different user must produce a different key")
	}
	if Key("u1", "hello!") == base {
		t.Error("different content must produce a different key")
	}
	// Moving bytes across the user/content boundary must change the key.
	if Key("u1h", "ello") == base {
		t.Error("boundary shift must produce a different key")
	}
}

func TestKeyVersionTag(t *testing.T) {
	k := Key("u1", "hello")
	if !strings.HasPrefix(k, "chat:v2:") {
		t.Errorf("key missing version namespace: %s", k)
	}
	if len(k) != len("chat:v2:")+32 {
		t.Errorf("unexpected key length: %d", len(k))
	}
}
