package devserver

import (
	"hash/fnv"
	"math"
	"sort"
	"strconv"

	"github.com/dxblostfound/lostfound/pkg/matching"
)

// DefaultTopK is how many candidates each item is returned with.
const DefaultTopK = 5

// FixtureScore is a deterministic, symmetric stand-in for a similarity score.
// Identical photos score 1; any other pair gets a value in [0,1) derived from
// the two digests.
func FixtureScore(shaA, shaB string) float64 {
	if shaA == shaB {
		return 1
	}
	if shaA > shaB {
		shaA, shaB = shaB, shaA
	}
	h := fnv.New64a()
	h.Write([]byte(shaA))
	h.Write([]byte{0})
	h.Write([]byte(shaB))
	v := float64(h.Sum64()>>11) / (1 << 53)
	return math.Floor(v*1e4) / 1e4
}

// ScoreKey is the key of a score override: the lost item id and the found
// item id joined by a colon.
func ScoreKey(lostID, foundID int64) string {
	return strconv.FormatInt(lostID, 10) + ":" + strconv.FormatInt(foundID, 10)
}

type candidate struct {
	item  Item
	score float64
}

// rank scores every candidate against it and keeps the topK best, highest
// first. Ties keep the lower id first.
func rank(it Item, pool []Item, overrides map[string]float64, topK int) []candidate {
	out := make([]candidate, 0, len(pool))
	for _, c := range pool {
		lost, found := it, c
		if it.Kind == matching.KindFound {
			lost, found = c, it
		}
		score, ok := overrides[ScoreKey(lost.ID, found.ID)]
		if !ok {
			score = FixtureScore(it.ImageSHA, c.ImageSHA)
		}
		out = append(out, candidate{item: c, score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].item.ID < out[j].item.ID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
