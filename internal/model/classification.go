package model

// Candidate is a 6-digit HS code proposed by Stage 1 with its vote count.
type Candidate struct {
	Code  string `json:"code"`
	Votes int    `json:"votes"`
}

// Stage1Result holds the outcome of the consensus classification stage.
type Stage1Result struct {
	// Candidates is ordered by descending votes; ties keep first-seen order.
	Candidates []Candidate `json:"candidates"`

	// Answers maps model name to its raw reply, for audit.
	Answers map[string]string `json:"answers"`

	// ProductInfo is the gathered descriptive text about the product. When
	// the information-gathering call fails this is a minimal fallback text,
	// never empty.
	ProductInfo string `json:"product_info"`
}

// Codes returns just the candidate codes in ranked order.
func (r *Stage1Result) Codes() []string {
	codes := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		codes[i] = c.Code
	}
	return codes
}
