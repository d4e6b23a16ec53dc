package auth

// Principal is the provider-shape-neutral view of an authenticated user as
// handed over by the identity provider. The two concrete shapes are resolved
// into plain strings here, once, at login time.
type Principal interface {
	PreferredUsername() string
	Email() string
	DisplayName() string
	Name() string
}

// OidcPrincipal carries OIDC standard claims.
type OidcPrincipal struct {
	Sub                    string
	EmailClaim             string
	PreferredUsernameClaim string
	NameClaim              string
}

func (p OidcPrincipal) PreferredUsername() string { return p.PreferredUsernameClaim }
func (p OidcPrincipal) Email() string             { return p.EmailClaim }
func (p OidcPrincipal) DisplayName() string       { return p.NameClaim }
func (p OidcPrincipal) Name() string              { return p.Sub }

// OAuth2Principal carries a generic OAuth2 user-info attribute map.
type OAuth2Principal struct {
	Attributes map[string]any
	NameAttr   string
}

func (p OAuth2Principal) attr(key string) string {
	v, _ := p.Attributes[key].(string)
	return v
}

func (p OAuth2Principal) PreferredUsername() string { return p.attr("preferred_username") }
func (p OAuth2Principal) Email() string             { return p.attr("email") }
func (p OAuth2Principal) DisplayName() string       { return p.attr("name") }

func (p OAuth2Principal) Name() string {
	if v := p.attr(p.NameAttr); v != "" {
		return v
	}
	return p.attr("sub")
}

// subjectOf derives the stable user identifier: email when present, else the
// provider's generic principal name.
func subjectOf(p Principal) string {
	if e := p.Email(); e != "" {
		return e
	}
	return p.Name()
}

// displayOf derives the UI display hint: name, then email, then the
// preferred username, then the principal name.
func displayOf(p Principal) string {
	if n := p.DisplayName(); n != "" {
		return n
	}
	if e := p.Email(); e != "" {
		return e
	}
	if u := p.PreferredUsername(); u != "" {
		return u
	}
	return p.Name()
}
