package store

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/bugtracker/tracker-system/internal/client/apiclient"
)

// SortField names a column bugs can be ordered by.
type SortField string

const (
	SortTitle    SortField = "title"
	SortStatus   SortField = "status"
	SortPriority SortField = "priority"
	SortAssignee SortField = "assignee"
	SortReporter SortField = "reporter"
	SortCreated  SortField = "created"
	SortUpdated  SortField = "updated"
)

var (
	priorityRank = map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}
	statusRank   = map[string]int{"open": 0, "in_progress": 1, "resolved": 2, "closed": 3}
)

// ParseSort reads "field" or "field:desc" (also "field:asc").
func ParseSort(value string) (SortField, bool, error) {
	name, dir, _ := strings.Cut(strings.TrimSpace(value), ":")
	field := SortField(strings.ToLower(name))
	switch field {
	case SortTitle, SortStatus, SortPriority, SortAssignee, SortReporter, SortCreated, SortUpdated:
	default:
		return "", false, fmt.Errorf("unknown sort field %q", name)
	}
	switch strings.ToLower(dir) {
	case "", "asc":
		return field, false, nil
	case "desc":
		return field, true, nil
	}
	return "", false, fmt.Errorf("unknown sort direction %q", dir)
}

// SortBugs orders bugs in place. The sort is stable, so equal keys keep the
// server's order. Text compares case-insensitively with digit runs compared
// numerically ("bug 9" before "bug 10").
func SortBugs(bugs []*apiclient.Bug, field SortField, desc bool) {
	slices.SortStableFunc(bugs, func(a, b *apiclient.Bug) int {
		c := compareBugs(a, b, field)
		if desc {
			return -c
		}
		return c
	})
}

func compareBugs(a, b *apiclient.Bug, field SortField) int {
	switch field {
	case SortStatus:
		return compareRank(statusRank, a.Status, b.Status)
	case SortPriority:
		return compareRank(priorityRank, a.Priority, b.Priority)
	case SortAssignee:
		return naturalCompare(refName(a.Assignee), refName(b.Assignee))
	case SortReporter:
		return naturalCompare(refName(a.Reporter), refName(b.Reporter))
	case SortCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortUpdated:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return naturalCompare(a.Title, b.Title)
}

func compareRank(ranks map[string]int, a, b string) int {
	ra, oka := ranks[a]
	rb, okb := ranks[b]
	switch {
	case oka && okb:
		return ra - rb
	case oka:
		return -1
	case okb:
		return 1
	}
	return naturalCompare(a, b)
}

func refName(r *apiclient.UserRef) string {
	if r == nil {
		return ""
	}
	return r.Username
}

func naturalCompare(a, b string) int {
	ar, br := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			if c := compareDigits(ar[si:i], br[sj:j]); c != 0 {
				return c
			}
			continue
		}
		if ar[i] != br[j] {
			if ar[i] < br[j] {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	return (len(ar) - i) - (len(br) - j)
}

func compareDigits(a, b []rune) int {
	a = trimZeros(a)
	b = trimZeros(b)
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	for k := range a {
		if a[k] != b[k] {
			return int(a[k]) - int(b[k])
		}
	}
	return 0
}

func trimZeros(d []rune) []rune {
	for len(d) > 1 && d[0] == '0' {
		d = d[1:]
	}
	return d
}
