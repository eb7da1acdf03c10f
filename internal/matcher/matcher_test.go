package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresAtLeastOnePattern(t *testing.T) {
	_, err := New("", "")
	assert.Error(t, err)
}

func TestNew_RejectsInvalidRegex(t *testing.T) {
	_, err := New("(", "")
	assert.Error(t, err)

	_, err = New("", "[")
	assert.Error(t, err)
}

func TestMatches_CommandOnly(t *testing.T) {
	m, err := New("steam", "")
	require.NoError(t, err)

	assert.True(t, m.Matches("/usr/bin/steam -silent", "anything"))
	assert.False(t, m.Matches("/usr/bin/firefox", "anything"))
	// No title pattern configured, so titles never match.
	assert.False(t, m.Matches("/usr/bin/firefox", "steam"))
}

func TestMatches_TitleOnly(t *testing.T) {
	m, err := New("", "(?i)minecraft")
	require.NoError(t, err)

	assert.True(t, m.Matches("java -jar whatever", "Minecraft 1.20"))
	assert.False(t, m.Matches("java -jar whatever", "Terminal"))
}

func TestMatches_EitherSuffices(t *testing.T) {
	m, err := New("dota2", "Dota 2")
	require.NoError(t, err)

	assert.True(t, m.Matches("/games/dota2 -vulkan", "loading"))
	assert.True(t, m.Matches("/usr/lib/wine", "Dota 2"))
	assert.False(t, m.Matches("/usr/bin/kate", "notes.txt"))
}
