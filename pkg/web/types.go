package web

// PushPayload is the body of POST /events/push.
type PushPayload struct {
	Repository string `json:"repository" validate:"required"`
	Branch     string `json:"branch"     validate:"required"`
	Revision   string `json:"revision"`
}

// MergeRequestPayload is the body of POST /events/merge-request. Branch is
// the source branch whose tip the pipeline builds.
type MergeRequestPayload struct {
	Repository   string `json:"repository"    validate:"required"`
	Branch       string `json:"branch"        validate:"required"`
	TargetBranch string `json:"target_branch"`
	Revision     string `json:"revision"`
}

// AcceptedResponse acknowledges an accepted trigger event.
type AcceptedResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}
