package corosync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConf = `logging {
  debug: off
  to_syslog: yes
}

nodelist {
  node {
    name: node1
    nodeid: 1
    quorum_votes: 1
    ring0_addr: 10.65.0.1
  }
  node {
    name: node2
    nodeid: 2
    quorum_votes: 1
    ring0_addr: 10.65.0.2
  }
}

quorum {
  provider: corosync_votequorum
}

totem {
  cluster_name: acidcluster
  config_version: 4
  interface {
    linknumber: 0
  }
  ip_version: ipv4-6
  secauth: on
  version: 2
}
`

func TestApplyTotemInsertsAllParameters(t *testing.T) {
	p := WANDefaults()

	out, err := ApplyTotem(sampleConf, p)
	require.NoError(t, err)

	assert.NoError(t, VerifyTotem(out, p))
	assert.Contains(t, out, "  token: 10000")
	assert.Contains(t, out, "  consensus: 12000")
	assert.Contains(t, out, "  join: 1000")
	assert.Contains(t, out, "  hold: 300")
	assert.Contains(t, out, "  max_messages: 20")

	// Sections other than totem are untouched.
	assert.Contains(t, out, "ring0_addr: 10.65.0.1")
	assert.Contains(t, out, "provider: corosync_votequorum")
	assert.Contains(t, out, "linknumber: 0")
}

func TestApplyTotemUpdatesInPlace(t *testing.T) {
	conf := strings.Replace(sampleConf,
		"  ip_version: ipv4-6",
		"  token: 3000\n  ip_version: ipv4-6", 1)

	out, err := ApplyTotem(conf, WANDefaults())
	require.NoError(t, err)

	assert.Contains(t, out, "  token: 10000")
	assert.NotContains(t, out, "token: 3000")
	// Updated in place, not duplicated.
	assert.Equal(t, 1, strings.Count(out, "token:"))
}

func TestApplyTotemIsIdempotent(t *testing.T) {
	p := WANDefaults()

	once, err := ApplyTotem(sampleConf, p)
	require.NoError(t, err)
	twice, err := ApplyTotem(once, p)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestApplyTotemOrderIndependent(t *testing.T) {
	p := WANDefaults()

	// Documents whose keys already exist, in different orders, converge to
	// the same verified state.
	seeded := []string{
		strings.Replace(sampleConf, "  secauth: on",
			"  max_messages: 5\n  token: 1\n  secauth: on", 1),
		strings.Replace(sampleConf, "  cluster_name: acidcluster",
			"  hold: 9\n  cluster_name: acidcluster\n  consensus: 2", 1),
		sampleConf,
	}

	for _, doc := range seeded {
		out, err := ApplyTotem(doc, p)
		require.NoError(t, err)
		assert.NoError(t, VerifyTotem(out, p))
		for _, key := range []string{"token", "consensus", "join", "hold", "max_messages"} {
			assert.Equal(t, 1, strings.Count(out, key+":"), "key %s duplicated", key)
		}
	}
}

func TestApplyTotemIgnoresNestedSections(t *testing.T) {
	conf := strings.Replace(sampleConf,
		"    linknumber: 0",
		"    linknumber: 0\n    token: 99", 1)

	out, err := ApplyTotem(conf, WANDefaults())
	require.NoError(t, err)

	// The nested key is untouched and a top-level one is added.
	assert.Contains(t, out, "    token: 99")
	assert.Contains(t, out, "  token: 10000")
}

func TestApplyTotemMissingSection(t *testing.T) {
	_, err := ApplyTotem("quorum {\n  provider: corosync_votequorum\n}\n", WANDefaults())
	assert.ErrorIs(t, err, ErrTotemNotFound)
}

func TestApplyTotemRejectsInvalidParams(t *testing.T) {
	p := WANDefaults()
	p.Hold = 0

	_, err := ApplyTotem(sampleConf, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hold")
}

func TestVerifyTotemDetectsPartialApply(t *testing.T) {
	p := WANDefaults()

	// Only three of five parameters present.
	conf := strings.Replace(sampleConf, "  secauth: on",
		"  token: 10000\n  consensus: 12000\n  join: 1000\n  secauth: on", 1)

	err := VerifyTotem(conf, p)
	require.ErrorIs(t, err, ErrPartialApply)
	assert.Contains(t, err.Error(), "hold missing")
	assert.Contains(t, err.Error(), "max_messages missing")
}

func TestVerifyTotemDetectsMismatchedValue(t *testing.T) {
	p := WANDefaults()

	out, err := ApplyTotem(sampleConf, p)
	require.NoError(t, err)

	stale := strings.Replace(out, "token: 10000", "token: 3000", 1)
	assert.ErrorIs(t, VerifyTotem(stale, p), ErrPartialApply)
}

func TestWANDefaultsValid(t *testing.T) {
	assert.NoError(t, WANDefaults().Validate())
}
