package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var premierLeague = []string{"Arsenal", "Chelsea", "Liverpool", "Man City", "Man United", "Nottingham Forest"}

func TestResolveTypo(t *testing.T) {
	name, ok := Resolve("Arsnal", premierLeague, DefaultCutoff)
	assert.True(t, ok)
	assert.Equal(t, "Arsenal", name)

	name, ok = Resolve("Nott'm Forest", premierLeague, DefaultCutoff)
	assert.True(t, ok)
	assert.Equal(t, "Nottingham Forest", name)
}

func TestResolveNoMatch(t *testing.T) {
	_, ok := Resolve("Zzzznotateam", premierLeague, DefaultCutoff)
	assert.False(t, ok)

	_, ok = Resolve("", premierLeague, DefaultCutoff)
	assert.False(t, ok)
}

func TestResolveIsDeterministic(t *testing.T) {
	first, ok := Resolve("Man Utd", premierLeague, DefaultCutoff)
	assert.True(t, ok)
	for i := 0; i < 20; i++ {
		again, _ := Resolve("Man Utd", premierLeague, DefaultCutoff)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "Man United", first)
}

func TestClosestRanking(t *testing.T) {
	got := Closest("Paris SG", []string{"Paris FC", "Paris SG", "St Etienne"}, 3, DefaultCutoff)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "Paris SG", got[0].Name)
		assert.InDelta(t, 1.0, got[0].Score, 1e-9)
		assert.Equal(t, "Paris FC", got[1].Name)
	}
}

func TestClosestTieBreaksOnName(t *testing.T) {
	got := Closest("abc", []string{"abd", "abe"}, 1, DefaultCutoff)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "abe", got[0].Name)
		assert.InDelta(t, 2.0/3.0, got[0].Score, 1e-9)
	}
}

func TestClosestRejectsBadArguments(t *testing.T) {
	assert.Nil(t, Closest("Arsenal", premierLeague, 0, DefaultCutoff))
	assert.Nil(t, Closest("Arsenal", premierLeague, 1, 1.5))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 12.0/13.0, Similarity("Arsnal", "Arsenal"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("Chelsea", "Chelsea"), 1e-9)
}
