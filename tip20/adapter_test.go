package tip20

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTIP20ABIHasExpectedMethods(t *testing.T) {
	for _, name := range []string{"balanceOf", "allowance", "transferFrom", "approve"} {
		if _, ok := tip20ABI.Methods[name]; !ok {
			t.Fatalf("embedded TIP-20 ABI missing method %q", name)
		}
	}
}

func TestNewAdapterStoresToken(t *testing.T) {
	var client ChainClient
	token := common.HexToAddress("0x20c0000000000000000000000000000000000000")
	a := NewAdapter(client, token)
	if a.token != token {
		t.Fatalf("token = %s, want %s", a.token.Hex(), token.Hex())
	}
	if a.bound == nil {
		t.Fatal("NewAdapter did not build a bound contract")
	}
}
