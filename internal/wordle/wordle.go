// internal/wordle/wordle.go
package wordle

import (
	"bufio"
	_ "embed"
	"strings"
	"sync"
)

// WordLength is the only guess length accepted.
const WordLength = 5

//go:embed words.txt
var wordsTxt string

var (
	loadOnce sync.Once
	words    map[string]struct{}
)

func dictionary() map[string]struct{} {
	loadOnce.Do(func() {
		words = make(map[string]struct{})
		sc := bufio.NewScanner(strings.NewReader(wordsTxt))
		for sc.Scan() {
			w := strings.ToLower(strings.TrimSpace(sc.Text()))
			if len(w) == WordLength {
				words[w] = struct{}{}
			}
		}
	})
	return words
}

// Validate reports whether word is an accepted guess. Case and surrounding
// whitespace are ignored.
func Validate(word string) bool {
	w := strings.ToLower(strings.TrimSpace(word))
	if len(w) != WordLength {
		return false
	}
	_, ok := dictionary()[w]
	return ok
}

// Size is the number of words in the dictionary.
func Size() int {
	return len(dictionary())
}

// Mark is the feedback for one letter of a guess.
type Mark string

const (
	Absent  Mark = "absent"
	Present Mark = "present"
	Correct Mark = "correct"
)

// Score grades guess against answer. Exact matches are marked first; each remaining
// answer letter can then mark at most one misplaced guess letter, left to right.
func Score(guess, answer string) []Mark {
	g := []rune(strings.ToLower(guess))
	a := []rune(strings.ToLower(answer))
	out := make([]Mark, len(g))
	left := make(map[rune]int)

	for i := range g {
		if i < len(a) && g[i] == a[i] {
			out[i] = Correct
			continue
		}
		if i < len(a) {
			left[a[i]]++
		}
	}
	for i := range g {
		if out[i] == Correct {
			continue
		}
		if left[g[i]] > 0 {
			left[g[i]]--
			out[i] = Present
		} else {
			out[i] = Absent
		}
	}
	return out
}

// Solved reports whether every mark is Correct.
func Solved(marks []Mark) bool {
	if len(marks) == 0 {
		return false
	}
	for _, m := range marks {
		if m != Correct {
			return false
		}
	}
	return true
}
