package models

// GroundingSource is one citation attached to a grounded answer.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundedResponse is the result of a nearby places lookup.
type GroundedResponse struct {
	Text    string            `json:"text"`
	Sources []GroundingSource `json:"sources"`
}
