// Package pages serves the HTML shell. The markup is a placeholder for the
// frontend build; the routes exist so page requests flow through the same
// gate as the API.
package pages

import (
	"html/template"
	"net/http"

	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/pkg/router"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} | SchoolHub</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Email}}<p>Signed in as {{.Email}}</p>{{end}}
<div id="root" data-page="{{.Page}}"></div>
</body>
</html>
`))

type pageData struct {
	Title string
	Page  string
	Email string
}

func RegisterHTTPEndpoint(r *router.Router) {
	r.GETRaw("/", page("Home", "home"))
	r.GETRaw("/login", page("Sign in", "login"))
	r.GETRaw("/schools", page("Schools", "schools"))
	r.GETRaw("/schools/:id", page("School", "school-detail"))
	r.GETRaw("/addSchool", page("Register a school", "add-school"))
}

func page(title, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := pageData{Title: title, Page: name}
		if clm := jwt.GetAuth(r.Context()); clm != nil {
			data.Email = clm.UserEmail
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, data); err != nil {
			http.Error(w, "failed to render page", http.StatusInternalServerError)
		}
	})
}
