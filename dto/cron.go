package dto

// ReconcileResponse is the body returned by the update-sessions cron trigger.
type ReconcileResponse struct {
	Success        bool   `json:"success"`
	UpdatedStarted int    `json:"updatedStarted"`
	UpdatedEnded   int    `json:"updatedEnded"`
	UpdatedStatus  int    `json:"updatedStatus"`
	Error          string `json:"error,omitempty"`
}

// UserSyncResponse is the body returned by the update-users cron trigger.
type UserSyncResponse struct {
	Success    bool   `json:"success"`
	TotalUsers int    `json:"totalUsers"`
	Updated    int    `json:"updated"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// BirthdayResponse is the body returned by the birthdays cron trigger.
type BirthdayResponse struct {
	Success    bool   `json:"success"`
	Workspaces int    `json:"workspaces"`
	Notified   int    `json:"notified"`
	Error      string `json:"error,omitempty"`
}
