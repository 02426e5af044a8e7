// Package view renders the server-side HTML pages. Pages are templ
// components; run `templ generate` after editing a .templ file.
package view

import "strconv"

func voteLabel(n int) string {
	if n == 1 {
		return "1 vote"
	}
	return strconv.Itoa(n) + " votes"
}
