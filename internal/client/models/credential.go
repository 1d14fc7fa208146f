package models

// Credential is what the client persists after a successful login.
// The user key is only ever stored wrapped under the device key.
type Credential struct {
	Email        string `json:"email"`
	WrappedKey   string `json:"wrapped_key"`
	WrapNonce    string `json:"wrap_nonce"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ServerURL    string `json:"server_url"`
}

// SyncCursor records how far the client has synced. NeedsFullSync forces
// the next sync to send every local record instead of a delta.
type SyncCursor struct {
	LastSync      int64 `json:"last_sync"`
	NeedsFullSync bool  `json:"needs_full_sync"`
}
