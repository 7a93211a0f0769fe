package tmdb

// Actor is a person returned by the search endpoint
type Actor struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ProfilePath string  `json:"profile_path"`
	Popularity  float64 `json:"popularity"`
}

// MovieCredit is one movie in an actor's filmography
type MovieCredit struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Popularity float64 `json:"popularity"`
}

// CastMember is one billed performer of a movie
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type searchResponse struct {
	TotalResults int     `json:"total_results"`
	Results      []Actor `json:"results"`
}

type movieCreditsResponse struct {
	Cast []MovieCredit `json:"cast"`
}

type castResponse struct {
	Cast []CastMember `json:"cast"`
}

type movieResponse struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}
