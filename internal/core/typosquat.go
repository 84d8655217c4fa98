package core

import (
	"strings"
)

// homoglyphs maps visually confusable characters onto a single
// canonical letter so that confusable strings collapse to the same
// normalized form. The map is deliberately one-way.
var homoglyphs = map[rune]rune{
	'0': 'o',
	'1': 'l',
	'i': 'l',
	'5': 's',
	'8': 'b',
}

// RegistrableDomain reduces a domain to its effective top-level-plus-one
// form (mail.example.com -> example.com).
func RegistrableDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	parts := strings.Split(d, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return d
}

// normalizeConfusables lowercases, collapses the "rn"->"m" visual
// bigram, and folds homoglyphs to their canonical letter.
func normalizeConfusables(s string) string {
	t := strings.ReplaceAll(strings.ToLower(s), "rn", "m")
	var b strings.Builder
	b.Grow(len(t))
	for _, ch := range t {
		if sub, ok := homoglyphs[ch]; ok {
			ch = sub
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// DetectTyposquat checks a claimed sender domain against the protected
// base domains. Bases are expected in registrable form. First hit wins:
// exact match is legitimate, then homoglyph equality, then edit
// distance <= 1, then a punycode IDN marker. Because homoglyph equality
// runs before the distance check, a single confusable substitution
// (paypa1.com) is reported as a homoglyph hit, never as edit distance.
func DetectTyposquat(candidate string, bases []string) TyposquatVerdict {
	cand := RegistrableDomain(candidate)
	if cand == "" || len(bases) == 0 {
		return TyposquatVerdict{}
	}

	for _, base := range bases {
		if cand == base {
			return TyposquatVerdict{}
		}
	}

	candNorm := normalizeConfusables(cand)
	punycode := strings.Contains(cand, "xn--")

	bestDist := -1
	bestBase := ""
	for _, base := range bases {
		baseNorm := normalizeConfusables(base)
		if baseNorm == candNorm {
			return TyposquatVerdict{
				Suspect:   true,
				ClosestTo: base,
				Reason:    TyposquatHomoglyph,
			}
		}
		if strings.Contains(base, "xn--") {
			punycode = true
		}
		dist := damerauLevenshtein(baseNorm, candNorm)
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			bestBase = base
		}
	}

	if bestDist >= 0 && bestDist <= 1 {
		return TyposquatVerdict{
			Suspect:   true,
			ClosestTo: bestBase,
			Reason:    TyposquatEditDistance,
		}
	}
	if punycode {
		return TyposquatVerdict{
			Suspect: true,
			Reason:  TyposquatPunycode,
		}
	}
	return TyposquatVerdict{}
}

// damerauLevenshtein computes the unrestricted Damerau-Levenshtein
// distance: unit-cost insertions, deletions, substitutions, and
// adjacent transpositions. Squats commonly insert a hyphen or swap two
// letters, so substitution-only distance would undercount.
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	inf := la + lb

	d := make([][]int, la+2)
	for i := range d {
		d[i] = make([]int, lb+2)
	}
	d[0][0] = inf
	for i := 0; i <= la; i++ {
		d[i+1][1] = i
		d[i+1][0] = inf
	}
	for j := 0; j <= lb; j++ {
		d[1][j+1] = j
		d[0][j+1] = inf
	}

	last := make(map[rune]int)
	for i := 1; i <= la; i++ {
		db := 0
		for j := 1; j <= lb; j++ {
			i1 := last[rb[j-1]]
			j1 := db
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
				db = j
			}
			d[i+1][j+1] = minInt(
				d[i][j]+cost,
				d[i+1][j]+1,
				d[i][j+1]+1,
				d[i1][j1]+(i-i1-1)+1+(j-j1-1),
			)
		}
		last[ra[i-1]] = i
	}
	return d[la+1][lb+1]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
