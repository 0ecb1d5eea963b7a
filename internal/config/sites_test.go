package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sitesYAML = `
default_order: [direct, readability]
sources:
  - name: siteA
    feed_url: https://a.example.com/rss.xml
  - name: siteB
    feed_url: https://b.example.com/feed
sites:
  - domain: b.example.com
    order: [headless, reader]
`

func TestParseSites(t *testing.T) {
	t.Parallel()

	s, err := ParseSites([]byte(sitesYAML))
	require.NoError(t, err)

	assert.Len(t, s.Sources, 2)
	assert.Equal(t, []string{"direct", "readability"}, s.OrderFor("a.example.com"))
	assert.Equal(t, []string{"headless", "reader"}, s.OrderFor("b.example.com"))
}

func TestParseSitesDefaultsOrder(t *testing.T) {
	t.Parallel()

	s, err := ParseSites([]byte("sources:\n  - name: x\n    feed_url: https://x/rss\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"direct", "readability", "headless", "reader"}, s.DefaultOrder)
}

func TestParseSitesRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := ParseSites([]byte("default_order: [telepathy]\n"))
	assert.Error(t, err)
}

func TestParseSitesRejectsIncompleteSource(t *testing.T) {
	t.Parallel()

	_, err := ParseSites([]byte("sources:\n  - name: x\n"))
	assert.Error(t, err)
}
