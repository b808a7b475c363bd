package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItems(t *testing.T) {
	stdout := "https://www.youtube.com/watch?v=a1\tFirst Song\t213.0\n" +
		"garbage line\n" +
		"https://www.youtube.com/watch?v=b2\tNA\tNA\n" +
		"https://www.youtube.com/watch?v=c3\tThird\t65\n"

	items := parseItems(stdout)
	require.Len(t, items, 3)
	assert.Equal(t, "First Song", items[0].Title)
	assert.Equal(t, 213*time.Second, items[0].Duration)
	assert.Equal(t, "https://www.youtube.com/watch?v=b2", items[1].Title)
	assert.Zero(t, items[1].Duration)
	assert.Equal(t, "https://www.youtube.com/watch?v=c3", items[2].SourceURL)
}

func TestParseItems_Empty(t *testing.T) {
	assert.Empty(t, parseItems(""))
	assert.Empty(t, parseItems("\n\n"))
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://youtu.be/x"))
	assert.True(t, isURL("http://example.com"))
	assert.False(t, isURL("never gonna give you up"))
}
