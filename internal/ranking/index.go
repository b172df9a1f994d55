package ranking

import (
	"math"

	"arcade-arena/internal/domain"

	"github.com/tidwall/btree"
)

// Index is one game's ordered skill index. Entries are keyed by
// (rating, playerId); a player holds at most one entry at a time.
type Index struct {
	tree *btree.BTreeG[domain.RankingEntry]
}

func NewIndex() *Index {
	return &Index{
		tree: btree.NewBTreeG(func(a, b domain.RankingEntry) bool {
			return a.Less(b)
		}),
	}
}

// Insert adds an entry; an entry with the identical key is left as is.
func (ix *Index) Insert(entry domain.RankingEntry) {
	if _, ok := ix.tree.Get(entry); ok {
		return
	}
	ix.tree.Set(entry)
}

// Remove deletes the entry with the exact key; absent keys are a no-op.
func (ix *Index) Remove(entry domain.RankingEntry) {
	ix.tree.Delete(entry)
}

func (ix *Index) Contains(entry domain.RankingEntry) bool {
	_, ok := ix.tree.Get(entry)
	return ok
}

func (ix *Index) Len() int {
	return ix.tree.Len()
}

// FindClosestExcluding returns the entry whose rating is nearest to
// targetRating, ignoring any entry owned by excludedPlayerID. Both the
// entry ordered just below the target and the one just above must be
// probed; ties on distance resolve toward the lower rating.
func (ix *Index) FindClosestExcluding(targetRating, excludedPlayerID int) (domain.RankingEntry, bool) {
	return ix.FindClosestWhere(targetRating, func(e domain.RankingEntry) bool {
		return e.PlayerID != excludedPlayerID
	})
}

// FindClosestWhere returns the acceptable entry nearest to
// targetRating. It walks outward from the target in both directions,
// skipping rejected entries, so the nearest candidate is found even
// when closer entries are ineligible.
func (ix *Index) FindClosestWhere(targetRating int, accept func(domain.RankingEntry) bool) (domain.RankingEntry, bool) {
	var below, above domain.RankingEntry
	var haveBelow, haveAbove bool

	ix.tree.Descend(domain.RankingEntry{Rating: targetRating, PlayerID: math.MaxInt}, func(e domain.RankingEntry) bool {
		if !accept(e) {
			return true
		}
		below, haveBelow = e, true
		return false
	})
	ix.tree.Ascend(domain.RankingEntry{Rating: targetRating, PlayerID: math.MinInt}, func(e domain.RankingEntry) bool {
		if !accept(e) {
			return true
		}
		above, haveAbove = e, true
		return false
	})

	switch {
	case !haveBelow && !haveAbove:
		return domain.RankingEntry{}, false
	case !haveAbove:
		return below, true
	case !haveBelow:
		return above, true
	}

	diffBelow := absDiff(below.Rating, targetRating)
	diffAbove := absDiff(above.Rating, targetRating)
	if diffBelow <= diffAbove {
		return below, true
	}
	return above, true
}

// OrderedAscending visits every entry from lowest to highest rating.
// The callback returns false to stop early.
func (ix *Index) OrderedAscending(fn func(domain.RankingEntry) bool) {
	ix.tree.Scan(fn)
}

// OrderedDescending visits every entry from highest to lowest rating.
func (ix *Index) OrderedDescending(fn func(domain.RankingEntry) bool) {
	ix.tree.Reverse(fn)
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
