package handlers

import (
	"net/http"
	"time"
)

// setRefreshCookie кладёт refresh-токен в HttpOnly cookie, недоступную скриптам страницы.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    token,
		Path:     h.Cookie.Path,
		Domain:   h.Cookie.Domain,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Cookie.Secure(),
		SameSite: h.Cookie.SameSiteMode(),
	})
}

// clearRefreshCookie удаляет cookie на клиенте.
func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     h.Cookie.Path,
		Domain:   h.Cookie.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure(),
		SameSite: h.Cookie.SameSiteMode(),
	})
}

// refreshCookie читает refresh-токен; пустая строка, если cookie нет.
func (h *Handlers) refreshCookie(r *http.Request) string {
	c, err := r.Cookie(h.Cookie.Name)
	if err != nil {
		return ""
	}

	return c.Value
}
