package models

// Principal is the authenticated identity attached to a request after a
// bearer token passes verification. It lives only for one request.
type Principal struct {
	Username    string
	Authorities []string
}

func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
