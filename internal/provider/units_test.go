package provider

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormatUnits(t *testing.T) {
	v, err := ParseUnits("0.001", 18)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000", v.String())
	assert.Equal(t, "0.001", FormatUnits(v, 18))

	v, err = ParseUnits("12", 6)
	require.NoError(t, err)
	assert.Equal(t, "12000000", v.String())
	assert.Equal(t, "12", FormatUnits(v, 6))

	_, err = ParseUnits("0.0000001", 6)
	assert.Error(t, err)
	_, err = ParseUnits("-1", 18)
	assert.Error(t, err)
	_, err = ParseUnits("abc", 18)
	assert.Error(t, err)
}

func TestApplySlippage(t *testing.T) {
	got := ApplySlippage(big.NewInt(1_000_000), 0.5)
	assert.Equal(t, int64(995_000), got.Int64())
	assert.Equal(t, int64(0), ApplySlippage(big.NewInt(10), 150).Int64())
}

func TestIsNative(t *testing.T) {
	assert.True(t, IsNative("BNB"))
	assert.True(t, IsNative(EVMNativeToken))
	assert.False(t, IsNative("0x55d398326f99059fF775485246999027B3197955"))
}
