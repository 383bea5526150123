// Package policy orders waitlist entries. The same comparator drives priority
// renumbering and offer candidate selection.
package policy

import (
	"bytes"
	"sort"
	"strings"
	"waitlist-service/modules/waitlist/entity"
)

var DefaultClasses = []string{"premium", "high", "normal"}

type PriorityPolicy struct {
	classes []string
	rank    map[string]int
}

// New builds a policy from classes listed best first. Unknown classes rank after all listed ones.
func New(classes []string) *PriorityPolicy {
	if len(classes) == 0 {
		classes = DefaultClasses
	}
	p := &PriorityPolicy{rank: make(map[string]int, len(classes))}
	for _, c := range classes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := p.rank[c]; dup {
			continue
		}
		p.rank[c] = len(p.classes)
		p.classes = append(p.classes, c)
	}
	return p
}

func (p *PriorityPolicy) Classes() []string {
	return append([]string(nil), p.classes...)
}

func (p *PriorityPolicy) Known(class string) bool {
	_, ok := p.rank[strings.ToLower(class)]
	return ok
}

func (p *PriorityPolicy) Rank(class string) int {
	if r, ok := p.rank[strings.ToLower(class)]; ok {
		return r
	}
	return len(p.classes)
}

// Less orders by class rank, then requestedAt, then id.
func (p *PriorityPolicy) Less(a, b *entity.WaitlistEntry) bool {
	if ra, rb := p.Rank(a.PriorityClass), p.Rank(b.PriorityClass); ra != rb {
		return ra < rb
	}
	if !a.RequestedAt.Equal(b.RequestedAt) {
		return a.RequestedAt.Before(b.RequestedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func (p *PriorityPolicy) Sort(entries []entity.WaitlistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return p.Less(&entries[i], &entries[j])
	})
}

// Renumber sorts entries and assigns priorities 1..N. It returns the indexes whose
// priority changed.
func (p *PriorityPolicy) Renumber(entries []entity.WaitlistEntry) []int {
	p.Sort(entries)
	var changed []int
	for i := range entries {
		if entries[i].Priority != i+1 {
			entries[i].Priority = i + 1
			changed = append(changed, i)
		}
	}
	return changed
}
