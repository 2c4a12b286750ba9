package model

// ShareLink bundles a program's join credentials together with the
// computed join URL.  It is a view derived from the programs row,
// not a persisted entity of its own: regenerating the code keeps
// the token, and disabling public access leaves both dormant
// rather than deleting them.
type ShareLink struct {
    ProgramID  uint64 `json:"program_id"`
    ShareCode  string `json:"share_code"`
    ShareToken string `json:"share_token"`
    URL        string `json:"url"`
}
