package ports

// PasswordHasher turns raw passwords into digests and checks them.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, digest string) bool
}
