package models

// EncryptedRecord is a record as it travels to and from the server. UID and
// LastUpdated stay in the clear so the server can route and order records
// without decrypting them.
type EncryptedRecord struct {
	Ciphertext  string `json:"ciphertext"`
	Nonce       string `json:"nonce"`
	UID         string `json:"uid"`
	LastUpdated int64  `json:"last_updated"`
}

// SyncRequest is the body of POST /api/sync.
type SyncRequest struct {
	LastSync  int64             `json:"last_sync"`
	DeviceID  string            `json:"device_id"`
	Tasks     []EncryptedRecord `json:"tasks"`
	Shortcuts []EncryptedRecord `json:"shortcuts"`
	Todos     []EncryptedRecord `json:"todos"`
}

// Records returns the outbound list for kind.
func (r *SyncRequest) Records(kind Kind) []EncryptedRecord {
	switch kind {
	case KindTask:
		return r.Tasks
	case KindShortcut:
		return r.Shortcuts
	case KindTodo:
		return r.Todos
	}
	return nil
}

// Add appends rec to the outbound list for kind.
func (r *SyncRequest) Add(kind Kind, rec EncryptedRecord) {
	switch kind {
	case KindTask:
		r.Tasks = append(r.Tasks, rec)
	case KindShortcut:
		r.Shortcuts = append(r.Shortcuts, rec)
	case KindTodo:
		r.Todos = append(r.Todos, rec)
	}
}

// Len is the number of records in the request.
func (r *SyncRequest) Len() int {
	n := 0
	for _, k := range Kinds {
		n += len(r.Records(k))
	}
	return n
}

// SyncResponse is the body returned by POST /api/sync: the server's changes
// since the client's last sync plus the ids it did not recognise.
type SyncResponse struct {
	ServerTimestamp   int64             `json:"server_timestamp"`
	Tasks             []EncryptedRecord `json:"tasks"`
	Shortcuts         []EncryptedRecord `json:"shortcuts"`
	Todos             []EncryptedRecord `json:"todos"`
	OrphanedTasks     []string          `json:"orphaned_tasks"`
	OrphanedShortcuts []string          `json:"orphaned_shortcuts"`
	OrphanedTodos     []string          `json:"orphaned_todos"`
}

// Records returns the inbound list for kind.
func (r *SyncResponse) Records(kind Kind) []EncryptedRecord {
	switch kind {
	case KindTask:
		return r.Tasks
	case KindShortcut:
		return r.Shortcuts
	case KindTodo:
		return r.Todos
	}
	return nil
}

// Orphans returns the ids of kind the server reported as unknown.
func (r *SyncResponse) Orphans(kind Kind) []string {
	switch kind {
	case KindTask:
		return r.OrphanedTasks
	case KindShortcut:
		return r.OrphanedShortcuts
	case KindTodo:
		return r.OrphanedTodos
	}
	return nil
}

// HasOrphans reports whether any orphan list is non-empty.
func (r *SyncResponse) HasOrphans() bool {
	for _, k := range Kinds {
		if len(r.Orphans(k)) > 0 {
			return true
		}
	}
	return false
}

type LoginRequest struct {
	Email         string `json:"email"`
	EncryptionKey string `json:"encryption_key"`
	DeviceID      string `json:"device_id"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

type LogoutRequest struct {
	DeviceID string `json:"device_id"`
}

// ErrorResponse is the JSON error body some non-2xx responses carry.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
