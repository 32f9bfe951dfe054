package domain

// PasswordContext carries user-derived inputs that a password must not
// resemble (fed to strength estimation alongside dictionary checks).
type PasswordContext struct {
	Username string
}
