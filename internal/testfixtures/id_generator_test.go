package testfixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-calendar/internal/links"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("session")

	first := gen.Next()
	second := gen.Next()
	if first != "session-1" || second != "session-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset()
	if next := gen.NextFunc()(); next != "session-1" {
		t.Fatalf("expected session-1 after reset, got %q", next)
	}
}

func TestLinkIdentifiersAreValidRedirectIdentifiers(t *testing.T) {
	var ids LinkIdentifiers

	first, err := ids.Next()
	require.NoError(t, err)
	assert.Equal(t, "lnk-001-tst-fix", first)
	assert.True(t, links.ValidIdentifier(first))
	assert.Equal(t, "/links/lnk-001-tst-fix", ids.PathFor(1))

	ids.counter = 999
	wrapped, err := ids.Next()
	require.NoError(t, err)
	assert.Equal(t, "lnk-001-tst-fix", wrapped)
}
