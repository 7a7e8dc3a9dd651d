package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestParse_Browser(t *testing.T) {
	info := Parse(chromeUA, "en-US,en;q=0.9")

	require.NotNil(t, info)
	assert.Equal(t, "Computer", info.Device)
	assert.Contains(t, info.Browser, "Chrome")
	assert.Equal(t, "en-US", info.Locale)
}

func TestParse_SDKClientYieldsNil(t *testing.T) {
	assert.Nil(t, Parse("OpenAI/Python 1.35.0", ""))
	assert.Nil(t, Parse("", ""))
}

func TestParse_LocaleWithoutComma(t *testing.T) {
	info := Parse(chromeUA, "fr-FR")

	require.NotNil(t, info)
	assert.Equal(t, "fr-FR", info.Locale)
}
