package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MockAuth treats every request as a development admin
type MockAuth struct {
	user *User
}

func NewMockAuth() *MockAuth {
	return &MockAuth{user: &User{
		ID:       "dev-user",
		Email:    "dev@esccup.local",
		Name:     "Dev Admin",
		Username: "dev",
		Groups:   []string{"users", AdminGroup},
	}}
}

func (m *MockAuth) Authenticate(*http.Request) (*User, error) {
	u := *m.user
	return &u, nil
}

func (m *MockAuth) Routes(r chi.Router) {
	r.Get("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
	r.Get("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}
