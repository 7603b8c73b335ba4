package domain

// PollOption is one answer with its running tally.
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollSnapshot is the client-facing view of a poll.
type PollSnapshot struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	TotalVotes int          `json:"totalVotes"`
	Active     bool         `json:"active"`
}
