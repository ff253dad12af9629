package utils

// Fixed mapping of known auth failure codes to the human-readable messages
// shown to the user. Unknown codes fall back to a generic message so raw
// backend errors never leak into the UI.
const (
	ErrCodeInvalidCredentials = "invalid-credentials"
	ErrCodeUserDisabled       = "user-disabled"
	ErrCodeEmailInUse         = "email-already-in-use"
	ErrCodeWeakPassword       = "weak-password"
	ErrCodeExpiredToken       = "expired-token"
	ErrCodeUnauthorized       = "unauthorized"
)

var authErrorMessages = map[string]string{
	ErrCodeInvalidCredentials: "Incorrect email or password. Please try again.",
	ErrCodeUserDisabled:       "This account has been disabled. Contact an administrator.",
	ErrCodeEmailInUse:         "An account already exists with this email address.",
	ErrCodeWeakPassword:       "Password must be at least 8 characters long.",
	ErrCodeExpiredToken:       "Your session has expired. Please sign in again.",
	ErrCodeUnauthorized:       "You do not have permission to access this page.",
}

func AuthErrorMessage(code string) string {
	if msg, ok := authErrorMessages[code]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
