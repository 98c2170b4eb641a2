package www

import (
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"depotflow/store"
	"depotflow/workflow"
)

const sessionName = "depotflow-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "depotflow-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // depot deployments run on plain HTTP inside the LAN
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// currentUserID returns the logged-in user's id, or 0 when unauthenticated.
func (h *Handlers) currentUserID(r *http.Request) int64 {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return 0
	}
	id, _ := session.Values["user_id"].(int64)
	return id
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.currentUserID(r) == 0 {
			h.jsonError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}

	user, err := h.engine.DB().GetUserByUsername(body.Username)
	if err != nil || !checkPassword(user.PasswordHash, body.Password) {
		h.jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["role"] = user.Role
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}
	h.jsonOK(w, user)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["user_id"] = int64(0)
	session.Values["username"] = ""
	session.Values["role"] = ""
	session.Save(r, w)
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	id := h.currentUserID(r)
	if id == 0 {
		h.jsonError(w, "not logged in", http.StatusUnauthorized)
		return
	}
	user, err := h.engine.DB().GetUser(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, user)
}

func (h *Handlers) ensureDefaultAdmin(db *store.DB) {
	exists, err := db.UserExists()
	if err != nil || exists {
		return
	}
	hash, err := hashPassword("admin")
	if err != nil {
		return
	}
	db.CreateUser(&store.User{Username: "admin", PasswordHash: hash, Role: workflow.RoleAdmin})
}
