package domain

// Authority is a permission granted to the caller of a request.
type Authority string

// AuthorityInternal is granted to callers that present the shared internal key.
const AuthorityInternal Authority = "INTERNAL"

// InternalCallerName identifies the BFF as a principal.
const InternalCallerName = "internal-bff"

// Principal is the per-request identity attached by the internal-access gate.
// It lives only for the duration of one request.
type Principal struct {
	Name        string
	Authorities []Authority
}

// InternalCaller returns a fresh principal for an authenticated BFF request.
func InternalCaller() *Principal {
	return &Principal{
		Name:        InternalCallerName,
		Authorities: []Authority{AuthorityInternal},
	}
}

// Has reports whether the principal holds authority a.
func (p *Principal) Has(a Authority) bool {
	if p == nil {
		return false
	}
	for _, got := range p.Authorities {
		if got == a {
			return true
		}
	}
	return false
}
