package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

// Splits are kept in basis points so shares floor exactly.
const basisPoints = 10000

// ValidateSquad checks a whole table. Every split must be a finite value in
// [0,100] with at most two decimals, names non-empty and unique, and the
// total at most 100.
// An empty table validates to nil, the host-takes-all default.
func ValidateSquad(entries []domain.SquadEntry) (domain.Squad, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(entries))
	out := make(domain.Squad, 0, len(entries))
	var total int64
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("squad entry without name: %w", domain.ErrValidation)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate squad member %q: %w", name, domain.ErrValidation)
		}
		seen[name] = struct{}{}
		if math.IsNaN(e.Split) || math.IsInf(e.Split, 0) || e.Split < 0 || e.Split > 100 {
			return nil, fmt.Errorf("split %v for %q out of range: %w", e.Split, name, domain.ErrValidation)
		}
		if !wholeBasisPoints(e.Split) {
			return nil, fmt.Errorf("split %v for %q has more than two decimals: %w", e.Split, name, domain.ErrValidation)
		}
		total += toBasisPoints(e.Split)
		out = append(out, domain.SquadEntry{Name: name, Split: e.Split})
	}
	if total > 100*100 {
		return nil, fmt.Errorf("splits sum to %.2f%%: %w", float64(total)/100, domain.ErrValidation)
	}
	return out, nil
}

// Shares computes the credits of one tip. Each member gets
// floor(amount*split/100); whatever is left goes to host. Credits for the
// same name are merged and the result is ordered by name.
func Shares(squad domain.Squad, host string, amount int64) []domain.Credit {
	byName := make(map[string]int64, len(squad)+1)
	var distributed int64
	for _, e := range squad {
		share := floorShare(amount, toBasisPoints(e.Split))
		if share == 0 {
			continue
		}
		byName[e.Name] += share
		distributed += share
	}
	if residual := amount - distributed; residual > 0 {
		byName[host] += residual
	}

	credits := make([]domain.Credit, 0, len(byName))
	for name, amt := range byName {
		credits = append(credits, domain.Credit{Name: name, Amount: amt})
	}
	sort.Slice(credits, func(i, j int) bool { return credits[i].Name < credits[j].Name })
	return credits
}

// wholeBasisPoints reports whether split is a whole number of basis points,
// allowing for float noise such as 12.34*100 = 1233.9999999.
func wholeBasisPoints(split float64) bool {
	bp := split * 100
	return math.Abs(bp-math.Round(bp)) < 1e-6
}

func toBasisPoints(split float64) int64 {
	return int64(math.Round(split * 100))
}

// floorShare is floor(amount*bp/10000) without overflowing on large amounts.
func floorShare(amount, bp int64) int64 {
	return (amount/basisPoints)*bp + (amount%basisPoints)*bp/basisPoints
}
