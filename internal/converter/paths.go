package converter

import (
	"fmt"
	"strconv"
)

// Paths are the planned output locations for one input.
type Paths struct {
	Temp  string
	Final string
}

// takenFunc reports whether a candidate path is unavailable.
type takenFunc func(path string) (bool, error)

// allocatePaths picks the temp and final paths for input, where stem is the
// input path without its extension and outExt the output extension.
//
// Temp is stem_temp_{i}{outExt} for the smallest free i >= 1. Final is
// stem{outExt} when that differs from input and is free, otherwise
// stem_{i}{outExt} for the smallest free i >= 1. Final never equals Temp.
func allocatePaths(input, stem, outExt string, taken takenFunc) (Paths, error) {
	var p Paths

	temp, err := firstFree(func(i int) string {
		return stem + "_temp_" + strconv.Itoa(i) + outExt
	}, func(c string) (bool, error) {
		if c == input {
			return true, nil
		}
		return taken(c)
	})
	if err != nil {
		return p, fmt.Errorf("allocate temp path: %w", err)
	}
	p.Temp = temp

	unavailable := func(c string) (bool, error) {
		if c == input || c == temp {
			return true, nil
		}
		return taken(c)
	}

	plain := stem + outExt
	busy, err := unavailable(plain)
	if err != nil {
		return p, fmt.Errorf("allocate final path: %w", err)
	}
	if !busy {
		p.Final = plain
		return p, nil
	}

	final, err := firstFree(func(i int) string {
		return stem + "_" + strconv.Itoa(i) + outExt
	}, unavailable)
	if err != nil {
		return p, fmt.Errorf("allocate final path: %w", err)
	}
	p.Final = final
	return p, nil
}

// maxCandidates bounds the search so a broken existence check cannot spin
// forever.
const maxCandidates = 100000

func firstFree(candidate func(int) string, taken takenFunc) (string, error) {
	for i := 1; i <= maxCandidates; i++ {
		c := candidate(i)
		busy, err := taken(c)
		if err != nil {
			return "", err
		}
		if !busy {
			return c, nil
		}
	}
	return "", fmt.Errorf("no free name after %d candidates", maxCandidates)
}
