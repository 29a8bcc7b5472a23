package registration

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
)

/*
HTTP surface for dynamic registration.

Mount under the tool's public base, e.g.:

	r := chi.NewRouter()
	r.Mount("/lti", registration.Routes(svc))

Platforms open GET {base}/lti/register in a popup with
?openid_configuration=...&registration_token=...; the returned form posts to
the continue route, whose response notifies the opener window to close the
popup (subject "org.imsglobal.lti.close").
*/

// Routes returns the registration endpoints (phase one and phase two).
func Routes(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/register", InitiateHandler(svc))
	r.Post("/register/continue", ContinueHandler(svc))
	return r
}

var continuationTmpl = template.Must(template.New("continuation").Parse(`<!doctype html>
<form id="tool-name-form" action="register/continue" method="post">
  <input type="hidden" name="endpoint" value="{{.ConfigurationEndpoint}}" />
  <label for="tool_name">Tool name</label>
  <input id="tool_name" name="tool_name" />
  <button type="submit" form="tool-name-form">Continue</button>
</form>
`))

// closeWindowHTML signals the opener/parent window that registration is done.
const closeWindowHTML = `<script>(window.opener || window.parent).postMessage({subject:"org.imsglobal.lti.close"}, "*");</script>`

// InitiateHandler handles phase one: record the pending registration and
// return the tool-name form.
func InitiateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cont, err := svc.Initiate(r.Context(), InitiateRequest{
			ConfigurationEndpoint: q.Get("openid_configuration"),
			RegistrationToken:     q.Get("registration_token"),
		})
		if err != nil {
			writeRegistrationErr(svc, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = continuationTmpl.Execute(w, cont)
	}
}

// ContinueHandler handles phase two: run the registration protocol and
// return the close-window signal.
func ContinueHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		_, err := svc.Complete(r.Context(), CompleteRequest{
			ConfigurationEndpoint: r.PostFormValue("endpoint"),
			ToolName:              r.PostFormValue("tool_name"),
		})
		if err != nil {
			writeRegistrationErr(svc, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(closeWindowHTML))
	}
}

// writeRegistrationErr maps a service error to its status. Unclassified
// errors are logged server-side and surfaced generically.
func writeRegistrationErr(svc *Service, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		svc.log().Errorw("registration failed", "err", err)
		msg = "Something went wrong"
	}
	http.Error(w, msg, status)
}
