package common

const (
	// AuthorizationHeader carries the bearer access token on authenticated
	// requests.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "

	// KeySize is the length in bytes of every symmetric key in the system.
	KeySize = 32
)
