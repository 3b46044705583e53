package questions

// Question is one entry from the question catalog. Only the id and
// complexity matter to matchmaking; the title is carried through for
// logging.
type Question struct {
	ID         string `json:"question_id"`
	Title      string `json:"title,omitempty"`
	Complexity string `json:"complexity"`
}
