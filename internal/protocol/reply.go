package protocol

// SnapshotResult is the page's answer to a snapshot instruction. Error
// carries the page-reported reason when Success is false.
type SnapshotResult struct {
	Success bool   `json:"success"`
	HTML    string `json:"html,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ConfirmResult carries the user's choice from a confirmation dialog.
// An absent field reads as false.
type ConfirmResult struct {
	Confirmed bool `json:"confirmed"`
}

// AnswerResult carries the user's free-form answer from a question
// popup. An absent field reads as the empty string.
type AnswerResult struct {
	Answer string `json:"answer"`
}
