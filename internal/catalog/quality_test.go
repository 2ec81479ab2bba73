package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQualityRankOrdering(t *testing.T) {
	require.Greater(t, QualityRank("4K"), QualityRank("FHD"))
	require.Greater(t, QualityRank("FHD"), QualityRank("HD"))
	require.Greater(t, QualityRank("HD"), QualityRank("SD"))
	require.Greater(t, QualityRank("SD"), QualityRank("CAM"))
	require.Equal(t, 0, QualityRank("unknown"))
}

func TestQualityRankNormalizes(t *testing.T) {
	require.Equal(t, QualityRank("FHD"), QualityRank(" fhd "))
}

func TestBetterQuality(t *testing.T) {
	require.Equal(t, "4K", BetterQuality("HD", "4K"))
	require.Equal(t, "4K", BetterQuality("4K", "HD"))
	require.Equal(t, "HD", BetterQuality("HD", "HD"))
	require.Equal(t, "HD", BetterQuality("", "HD"))
	require.Equal(t, "HD", BetterQuality("HD", ""))
	require.Equal(t, "HD", BetterQuality("HD", "weird"), "unknown labels never displace a known quality")
}
