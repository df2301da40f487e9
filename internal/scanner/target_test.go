package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTargetURLAndDomain(t *testing.T) {
	t.Parallel()

	target := Target{
		URLTemplate: "https://www.spaceship.com/domain-search/?query={n}.xyz&beast=false&tab=domains",
		TLD:         "xyz",
	}
	require.Equal(t, "https://www.spaceship.com/domain-search/?query=112509.xyz&beast=false&tab=domains", target.URL(112509))
	require.Equal(t, "112509.xyz", target.Domain(112509))

	re, err := target.URLPattern()
	require.NoError(t, err)
	m := re.FindStringSubmatch(target.URL(42))
	require.Len(t, m, 2)
	require.Equal(t, "42", m[1])
	require.False(t, re.MatchString("https://www.spaceship.com/domain-search/?query=abc.xyz&beast=false&tab=domains"))
}
