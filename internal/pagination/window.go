// Package pagination computes the page buttons shown under the calls table.
package pagination

import (
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	KindPage Kind = iota
	KindDots
)

// Button is either a page number or an ellipsis between two kept pages. Key
// is stable for the same (current, total) pair.
type Button struct {
	Kind  Kind
	Value int
	Key   string
}

// Buttons keeps the first two pages, the last two pages and a window of
// three around current, inserting a dots marker for every gap.
func Buttons(current, total int) []Button {
	if total <= 1 {
		return nil
	}
	clamp := func(v int) int {
		if v < 1 {
			return 1
		}
		if v > total {
			return total
		}
		return v
	}

	seen := map[int]struct{}{}
	pages := make([]int, 0, 7)
	for _, p := range []int{1, 2, total - 1, total, clamp(current - 1), current, clamp(current + 1)} {
		if p < 1 || p > total {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pages = append(pages, p)
	}
	sort.Ints(pages)

	out := make([]Button, 0, len(pages)+2)
	prev := 0
	for _, p := range pages {
		if prev != 0 && p-prev > 1 {
			out = append(out, Button{Kind: KindDots, Key: fmt.Sprintf("d%d_%d", prev, p)})
		}
		out = append(out, Button{Kind: KindPage, Value: p, Key: fmt.Sprintf("p%d", p)})
		prev = p
	}
	return out
}

// Render draws buttons as a single line, bracketing the current page.
func Render(buttons []Button, current int) string {
	parts := make([]string, 0, len(buttons))
	for _, b := range buttons {
		switch b.Kind {
		case KindDots:
			parts = append(parts, "…")
		default:
			if b.Value == current {
				parts = append(parts, fmt.Sprintf("[%d]", b.Value))
			} else {
				parts = append(parts, fmt.Sprintf("%d", b.Value))
			}
		}
	}
	return strings.Join(parts, " ")
}
