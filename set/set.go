// Package set implements a string set used for affected-net and clock-net
// bookkeeping.
package set

import (
	"fmt"
	"sort"
)

type Set map[string]struct{}

func New(elements ...string) Set {
	set := make(Set)
	for _, e := range elements {
		set.Add(e)
	}
	return set
}

func (set Set) Add(str string) {
	set[str] = struct{}{}
}

func (set Set) Has(str string) bool {
	_, ok := set[str]
	return ok
}

func (set Set) Len() int {
	return len(set)
}

func (set Set) Sorted() (elements []string) {
	for element := range set {
		elements = append(elements, element)
	}
	sort.Strings(elements)
	return
}

func (set Set) String() (str string) {
	return fmt.Sprintf("%d", len(set))
}
