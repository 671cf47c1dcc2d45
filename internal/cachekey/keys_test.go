package cachekey

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

// TestCanonicalStringDeterminism verifies two identities with the same
// attributes always produce the same partition key.
func TestCanonicalStringDeterminism(t *testing.T) {
	a := NewPairIdentity(weth, usdc, ExactIn, 1)
	b := NewPairIdentity(weth, usdc, ExactIn, 1)

	if a.CanonicalString() != b.CanonicalString() {
		t.Errorf("Expected identical keys, got %q and %q", a.CanonicalString(), b.CanonicalString())
	}

	t.Log("✓ Canonical string is deterministic")
}

// TestRoleOrderPreserved verifies WETH→USDC and USDC→WETH produce different
// keys: token roles are positional, never sorted.
func TestRoleOrderPreserved(t *testing.T) {
	forward := NewPairIdentity(weth, usdc, ExactIn, 1)
	reverse := NewPairIdentity(usdc, weth, ExactIn, 1)

	if forward.CanonicalString() == reverse.CanonicalString() {
		t.Errorf("Expected distinct keys for reversed roles, both %q", forward.CanonicalString())
	}

	t.Log("✓ Token role order is preserved in the key")
}

// TestWildcardSideDependsOnDirection verifies exact-in wildcards the token
// out side and exact-out wildcards the token in side.
func TestWildcardSideDependsOnDirection(t *testing.T) {
	in := NewPairIdentity(weth, usdc, ExactIn, 1)
	out := NewPairIdentity(weth, usdc, ExactOut, 1)

	inWild := in.WildcardString()
	if !strings.HasSuffix(inWild, "/"+WildcardToken) {
		t.Errorf("Expected exact-in wildcard on token out side, got %q", inWild)
	}
	if !strings.Contains(inWild, strings.ToLower(weth.Hex())) {
		t.Errorf("Expected token in preserved in %q", inWild)
	}

	outWild := out.WildcardString()
	if !strings.Contains(outWild, "/"+WildcardToken+"/") {
		t.Errorf("Expected exact-out wildcard on token in side, got %q", outWild)
	}
	if !strings.Contains(outWild, strings.ToLower(usdc.Hex())) {
		t.Errorf("Expected token out preserved in %q", outWild)
	}

	t.Log("✓ Wildcard side follows trade direction")
}

// TestAddressCaseInsensitive verifies checksummed and lowercase spellings of
// the same address land on the same key.
func TestAddressCaseInsensitive(t *testing.T) {
	checksummed := NewPairIdentity(weth, usdc, ExactIn, 1)
	lowered := NewPairIdentity(
		common.HexToAddress(strings.ToLower(weth.Hex())),
		common.HexToAddress(strings.ToLower(usdc.Hex())),
		ExactIn, 1,
	)

	if checksummed.CanonicalString() != lowered.CanonicalString() {
		t.Errorf("Expected case-insensitive keys, got %q and %q",
			checksummed.CanonicalString(), lowered.CanonicalString())
	}

	t.Log("✓ Address case does not affect the key")
}

// TestPrefixIsStrictPrefixOfFull verifies the begins-with contract between
// the two sort-key encodings.
func TestPrefixIsStrictPrefixOfFull(t *testing.T) {
	protocols := []string{"v3", "v2"}
	bucket := decimal.RequireFromString("3")

	prefix := NewRevisionPrefix(protocols, bucket).PrefixString()
	full := NewRevisionKey(protocols, bucket, 18_500_000).FullString()

	if !strings.HasPrefix(full, prefix) {
		t.Errorf("Expected %q to be a prefix of %q", prefix, full)
	}
	if len(full) <= len(prefix) {
		t.Errorf("Expected strict prefix, prefix %q full %q", prefix, full)
	}

	t.Log("✓ Prefix string is a strict prefix of the full string")
}

// TestProtocolSetCanonicalization verifies set-equal protocol lists in any
// order and case produce identical sort keys.
func TestProtocolSetCanonicalization(t *testing.T) {
	bucket := decimal.RequireFromString("1")

	a := NewRevisionKey([]string{"v3", "v2", "mixed"}, bucket, 100)
	b := NewRevisionKey([]string{"MIXED", "V2", "v3"}, bucket, 100)

	if a.FullString() != b.FullString() {
		t.Errorf("Expected identical keys, got %q and %q", a.FullString(), b.FullString())
	}

	t.Log("✓ Protocol set is canonicalized before encoding")
}

// TestRevisionPaddingPreservesOrder verifies lexicographic order of full
// keys matches numeric order of revisions.
func TestRevisionPaddingPreservesOrder(t *testing.T) {
	protocols := []string{"v3"}
	bucket := decimal.RequireFromString("5")

	older := NewRevisionKey(protocols, bucket, 9_999_999).FullString()
	newer := NewRevisionKey(protocols, bucket, 10_000_000).FullString()

	if !(older < newer) {
		t.Errorf("Expected %q < %q lexicographically", older, newer)
	}

	t.Log("✓ Zero-padded revisions sort lexicographically by block number")
}

// TestFullStringWithoutRevisionPanics verifies the misuse guard.
func TestFullStringWithoutRevisionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for FullString on a prefix-only key")
		}
	}()

	NewRevisionPrefix([]string{"v3"}, decimal.RequireFromString("1")).FullString()
}

// TestParseTradeDirection verifies accepted labels and the rejection path.
func TestParseTradeDirection(t *testing.T) {
	if d, ok := ParseTradeDirection("exactIn"); !ok || d != ExactIn {
		t.Errorf("Expected ExactIn, got %v ok=%v", d, ok)
	}
	if d, ok := ParseTradeDirection("exact_out"); !ok || d != ExactOut {
		t.Errorf("Expected ExactOut, got %v ok=%v", d, ok)
	}
	if _, ok := ParseTradeDirection("both"); ok {
		t.Error("Expected unknown direction to be rejected")
	}

	t.Log("✓ Trade direction parsing accepts both spellings")
}
