package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "y", "on"} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		assert.False(t, ParseBool(v), v)
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"security", "zap"}, SplitList("security, zap,"))
	assert.Equal(t, []string{"a", "b", "a"}, SplitList("a,,b , a"))
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "1.2.3", NormalizeVersion(" v1.2.3"))
	assert.Equal(t, "1.2.3", NormalizeVersion("1.2.3"))
}
