package pwc

// paperList is the response of the paper lookup endpoint.
type paperList struct {
	Count   int     `json:"count"`
	Results []paper `json:"results"`
}

// paper is a single paper record in the index.
type paper struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// repositoryList is the response of the repositories endpoint.
type repositoryList struct {
	Count   int          `json:"count"`
	Results []repository `json:"results"`
}

// repository is a code repository linked to a paper.
type repository struct {
	URL        string `json:"url"`
	IsOfficial bool   `json:"is_official"`
	Stars      int    `json:"stars"`
}
