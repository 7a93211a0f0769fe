package crawler

import (
	"sort"

	"github.com/alvmarrod/actor-weaver/internal/tmdb"
)

// uniqueCredits drops invalid credits and repeats of the same movie,
// which the provider emits when an actor played several roles
func uniqueCredits(credits []tmdb.MovieCredit) []tmdb.MovieCredit {
	seen := make(map[int]bool, len(credits))
	out := make([]tmdb.MovieCredit, 0, len(credits))

	for _, credit := range credits {
		if credit.ID == 0 || seen[credit.ID] {
			continue
		}
		seen[credit.ID] = true
		out = append(out, credit)
	}
	return out
}

// TopMoviesByPopularity returns up to n distinct movies, most popular first.
// Ties keep provider order.
func TopMoviesByPopularity(credits []tmdb.MovieCredit, n int) []tmdb.MovieCredit {
	movies := uniqueCredits(credits)
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Popularity > movies[j].Popularity
	})
	return truncate(movies, n)
}

// TopCredits returns up to n distinct movies in provider order
func TopCredits(credits []tmdb.MovieCredit, n int) []tmdb.MovieCredit {
	return truncate(uniqueCredits(credits), n)
}

// TopCast returns the first n distinct cast members in billing order
func TopCast(cast []tmdb.CastMember, n int) []tmdb.CastMember {
	seen := make(map[int]bool, len(cast))
	out := make([]tmdb.CastMember, 0, n)

	for _, member := range cast {
		if len(out) >= n {
			break
		}
		if member.ID == 0 || seen[member.ID] {
			continue
		}
		seen[member.ID] = true
		out = append(out, member)
	}
	return out
}

func truncate(credits []tmdb.MovieCredit, n int) []tmdb.MovieCredit {
	if n >= 0 && len(credits) > n {
		return credits[:n]
	}
	return credits
}
