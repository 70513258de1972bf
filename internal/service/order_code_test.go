package service

import (
	"strings"
	"testing"
)

func TestGenerateShortCodeAlphabetAndLength(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateShortCode(7)
		if err != nil {
			t.Fatalf("generate code failed: %v", err)
		}
		if len(code) != 7 {
			t.Fatalf("code length want 7 got %d (%s)", len(code), code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %s contains non base-36 rune %q", code, r)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 190 {
		t.Fatalf("codes look non-random: %d unique out of 200", len(seen))
	}
}

func TestCodeSignerRoundTrip(t *testing.T) {
	signer := NewCodeSigner("shop-secret", "https://shop.example/")
	tag := signer.Sign("K3X9QZ1")
	if len(tag) != signatureHexLen {
		t.Fatalf("unexpected tag length: %s", tag)
	}
	if !signer.Verify("K3X9QZ1", tag) {
		t.Fatalf("signature should verify")
	}
	if !signer.Verify("k3x9qz1", strings.ToUpper(tag)) {
		t.Fatalf("verification should be case-insensitive on code and tag")
	}
	if signer.Verify("K3X9QZ2", tag) {
		t.Fatalf("different code must not verify")
	}
	other := NewCodeSigner("other-secret", "")
	if other.Verify("K3X9QZ1", tag) {
		t.Fatalf("different secret must not verify")
	}
	if signer.Verify("K3X9QZ1", "") {
		t.Fatalf("empty tag must not verify")
	}
}

func TestCodeSignerTrackingURL(t *testing.T) {
	signer := NewCodeSigner("shop-secret", "https://shop.example/")
	got := signer.TrackingURL("k3x9qz1")
	want := "https://shop.example/track/K3X9QZ1?t=" + signer.Sign("K3X9QZ1")
	if got != want {
		t.Fatalf("tracking url want %s got %s", want, got)
	}
}
