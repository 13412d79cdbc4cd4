package envelope

import (
	"testing"
)

func TestParseDefaultsSchemeToETH(t *testing.T) {
	env, err := Parse([]byte(`{"uniqueKey":"u1","signatures":[{"signature":"0x1"}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if env.Signing != SchemeETH {
		t.Errorf("expected default scheme ETH, got %s", env.Signing)
	}
}

func TestResolvedSignatures_TopLevelOnly(t *testing.T) {
	env, err := Parse([]byte(`{"signature":"0xabc"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sigs, err := env.ResolvedSignatures()
	if err != nil {
		t.Fatalf("ResolvedSignatures failed: %v", err)
	}
	if len(sigs) != 1 || sigs[0].Signature != "0xabc" {
		t.Errorf("expected single-entry list from top-level signature, got %+v", sigs)
	}
}

func TestResolvedSignatures_ListOnly(t *testing.T) {
	env, err := Parse([]byte(`{"signatures":[{"signature":"0x1"},{"signature":"0x2"}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sigs, err := env.ResolvedSignatures()
	if err != nil {
		t.Fatalf("ResolvedSignatures failed: %v", err)
	}
	if len(sigs) != 2 {
		t.Errorf("expected 2 entries, got %d", len(sigs))
	}
}

func TestResolvedSignatures_ConflictingBothRejected(t *testing.T) {
	env, err := Parse([]byte(`{"signature":"0x1","signatures":[{"signature":"0x2"}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := env.ResolvedSignatures(); err == nil {
		t.Error("expected error for conflicting top-level signature and signatures list")
	}
}

func TestResolvedSignatures_ConsistentBothAccepted(t *testing.T) {
	env, err := Parse([]byte(`{"signature":"0x1","signatures":[{"signature":"0x1"}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sigs, err := env.ResolvedSignatures()
	if err != nil {
		t.Fatalf("expected no error when top-level and list agree, got %v", err)
	}
	if len(sigs) != 1 {
		t.Errorf("expected 1 entry, got %d", len(sigs))
	}
}

func TestResolvedSignatures_Empty(t *testing.T) {
	env, err := Parse([]byte(`{"signerAddress":"service|token-cc"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sigs, err := env.ResolvedSignatures()
	if err != nil {
		t.Fatalf("ResolvedSignatures failed: %v", err)
	}
	if len(sigs) != 0 {
		t.Errorf("expected no signature entries, got %d", len(sigs))
	}
}

func TestIsServiceSender(t *testing.T) {
	if !IsServiceSender("service|token-cc") {
		t.Error("expected service| prefix to be recognized")
	}
	if IsServiceSender("eth|0xabc") {
		t.Error("expected non-service sender to be rejected")
	}
}

func TestCanonicalPayloadStripsSignatureFields(t *testing.T) {
	env, err := Parse([]byte(`{"signing":"ETH","uniqueKey":"u1","signature":"0xabc","to":"eth|0xdead","amount":5}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	payload, err := env.CanonicalPayload()
	if err != nil {
		t.Fatalf("CanonicalPayload failed: %v", err)
	}
	got := string(payload)
	if want := `{"amount":5,"signing":"ETH","to":"eth|0xdead","uniqueKey":"u1"}`; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestCanonicalPayloadPrependsPrefix(t *testing.T) {
	env, err := Parse([]byte(`{"prefix":"wallet/v1:","amount":1}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	payload, err := env.CanonicalPayload()
	if err != nil {
		t.Fatalf("CanonicalPayload failed: %v", err)
	}
	if got := string(payload); got != `wallet/v1:{"amount":1}` {
		t.Errorf("unexpected payload: %s", got)
	}
}

func TestValidateRejectsMalformedSignatureEntry(t *testing.T) {
	raw := []byte(`{"signatures":[{"signerAddress":"eth|0xabc"}]}`)
	if err := Validate(raw); err == nil {
		t.Error("expected validation error for signature entry missing required signature field")
	}
}

func TestValidateAcceptsWellFormedEnvelope(t *testing.T) {
	raw := []byte(`{"signing":"ETH","uniqueKey":"u1","signatures":[{"signature":"0xabc"}]}`)
	if err := Validate(raw); err != nil {
		t.Errorf("expected valid envelope to pass schema validation, got %v", err)
	}
}

func TestParseValidatedRejectsBadScheme(t *testing.T) {
	raw := []byte(`{"signing":"BTC","signatures":[{"signature":"0xabc"}]}`)
	if _, err := ParseValidated(raw); err == nil {
		t.Error("expected error for unsupported signing scheme")
	}
}
