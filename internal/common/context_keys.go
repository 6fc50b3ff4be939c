// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// UserIDKey is the context key for storing the authenticated user's ID
	UserIDKey = "userID"
	// UserEmailKey is the context key for storing the authenticated user's email
	UserEmailKey = "userEmail"
	// UserRoleKey is the context key for storing the authenticated user's role
	UserRoleKey = "userRole"
	// FirebaseUIDKey is the context key for storing the Firebase UID
	FirebaseUIDKey = "firebaseUID"
	// TokenIssuedAtKey holds the verified ID token's issue time.
	TokenIssuedAtKey = "tokenIssuedAt"
)

// Roles a user account can hold. RoleSystem is never stored on a user; it
// identifies automated callers such as payment webhooks.
const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

// IsValidUserRole reports whether role may be assigned to an account.
func IsValidUserRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
