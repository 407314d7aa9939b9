package http

import (
	"errors"
	"net/http"

	"incassi/internal/auth"
	"incassi/internal/log"
)

type authPage struct {
	Title  string
	Action string
	Submit string
	Alt    string
	AltURL string
	AltTxt string
	Email  string
	Error  string
}

func loginPage() authPage {
	return authPage{
		Title:  "Accedi",
		Action: "/login",
		Submit: "Accedi",
		Alt:    "Non hai un account?",
		AltURL: "/signup",
		AltTxt: "Registrati",
	}
}

func signupPage() authPage {
	return authPage{
		Title:  "Crea un account",
		Action: "/signup",
		Submit: "Registrati",
		Alt:    "Hai già un account?",
		AltURL: "/login",
		AltTxt: "Accedi",
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "auth.html", loginPage())
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "auth.html", signupPage())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	page := loginPage()
	email, password, ok := s.credentials(w, r, page)
	if !ok {
		return
	}
	page.Email = email

	user, err := s.auth.Login(r.Context(), email, password)
	if err != nil {
		status := http.StatusUnauthorized
		page.Error = "Email o password non corretti"
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.FromContext(r.Context()).LogError(r.Context(), "Login failed", err, log.OpLogin, nil)
			status = http.StatusInternalServerError
			page.Error = "Accesso non disponibile, riprova"
		}
		s.renderStatus(w, r, status, "auth.html", page)
		return
	}
	s.startSession(w, r, user, log.OpLogin)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	page := signupPage()
	email, password, ok := s.credentials(w, r, page)
	if !ok {
		return
	}
	page.Email = email

	user, err := s.auth.Register(r.Context(), email, password)
	if err != nil {
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, auth.ErrUserExists):
			status = http.StatusConflict
			page.Error = "Esiste già un account con questa email"
		case errors.Is(err, auth.ErrInvalidEmail):
			page.Error = "Indirizzo email non valido"
		case errors.Is(err, auth.ErrWeakPassword):
			page.Error = "La password deve avere almeno 6 caratteri"
		default:
			log.FromContext(r.Context()).LogError(r.Context(), "Signup failed", err, log.OpSignup, nil)
			status = http.StatusInternalServerError
			page.Error = "Registrazione non disponibile, riprova"
		}
		s.renderStatus(w, r, status, "auth.html", page)
		return
	}
	s.startSession(w, r, user, log.OpSignup)
}

func (s *Server) credentials(w http.ResponseWriter, r *http.Request, page authPage) (email, password string, ok bool) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		page.Error = "Formato richiesta non valido"
		s.renderStatus(w, r, http.StatusBadRequest, "auth.html", page)
		return "", "", false
	}
	return parser.Get("email"), parser.Raw("password"), true
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user auth.User, op string) {
	if err := s.sessions.Issue(w, user); err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Session issue failed", err, op, log.NewFields().WithOwner(user.ID))
		InternalServerError("Sessione non disponibile, riprova").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Session started",
		log.FieldOwnerID, user.ID, log.FieldOperation, op)
	redirect(w, r, "/")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessions.Read(r); err == nil {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Session ended",
			log.FieldOwnerID, sess.UserID, log.FieldOperation, log.OpLogout)
	}
	s.sessions.Clear(w)
	redirect(w, r, "/login")
}

// redirect navigates the whole page, for HTMX and plain requests alike.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
