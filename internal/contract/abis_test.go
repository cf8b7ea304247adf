package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsRegistered(t *testing.T) {
	all := AllBuiltins()
	require.Len(t, all, 2)
	assert.Equal(t, AgentRegistryID, all[0].ID)
	assert.Equal(t, CopyTradeID, all[1].ID)
}

func TestAgentRegistryABI(t *testing.T) {
	b, ok := GetBuiltin(AgentRegistryID)
	require.True(t, ok)
	for _, m := range []string{"registerAgent", "copyAgent", "getAgent", "getAllAgents", "nextAgentId"} {
		assert.Contains(t, b.ABI.Methods, m)
	}
	assert.Equal(t, "registerAgent(string,string,uint256)", b.ABI.Methods["registerAgent"].Sig)
	assert.Contains(t, b.ABI.Events, "AgentRegistered")
	assert.Contains(t, b.ABI.Events, "AgentCopied")
}

func TestCopyTradeABI(t *testing.T) {
	parsed := MustABI(CopyTradeID)
	assert.Equal(t, "executeTrade(uint256,string,string,uint256)", parsed.Methods["executeTrade"].Sig)
	assert.Equal(t, "getUserTrades(address)", parsed.Methods["getUserTrades"].Sig)
	assert.Contains(t, parsed.Events, "TradeExecuted")
}

func TestGetBuiltinUnknown(t *testing.T) {
	_, ok := GetBuiltin("erc20")
	assert.False(t, ok)
	assert.Panics(t, func() { MustABI("erc20") })
}

func TestParseABIRejectsArtifactObject(t *testing.T) {
	_, err := ParseABI([]byte(`{"abi":[]}`))
	assert.ErrorContains(t, err, "JSON object")
	_, err = ParseABI([]byte(`not json`))
	assert.Error(t, err)
}
