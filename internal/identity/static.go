package identity

import "context"

// StaticDirectory is a fixed, in-memory Directory. The bundled server loads
// it from configuration; tests build it directly.
type StaticDirectory struct {
	tokens map[string]Token
	users  map[string]User
}

// NewStaticDirectory indexes the given users by name and tokens by id.
func NewStaticDirectory(users []User, tokens []Token) *StaticDirectory {
	d := &StaticDirectory{
		tokens: make(map[string]Token, len(tokens)),
		users:  make(map[string]User, len(users)),
	}
	for _, u := range users {
		d.users[u.Name] = u
	}
	for _, t := range tokens {
		d.tokens[t.ID] = t
	}
	return d
}

func (d *StaticDirectory) Token(_ context.Context, id string) (Token, error) {
	tok, ok := d.tokens[id]
	if !ok {
		return Token{}, ErrNotFound
	}
	return tok, nil
}

func (d *StaticDirectory) UserByName(_ context.Context, name string) (User, error) {
	user, ok := d.users[name]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}
