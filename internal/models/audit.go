package models

// Audit actions recorded for account events.
const (
	AuditSignup               = "signup"
	AuditLogin                = "login"
	AuditLoginFailed          = "login_failed"
	AuditPasswordReset        = "password_reset_requested"
	AuditProfilePhotoUploaded = "profile_photo_uploaded"
)
