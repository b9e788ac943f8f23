package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

func TestRegister(t *testing.T) {
	Convey("Given the documentation routes", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		serve := func(method, path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
			return w
		}

		Convey("Then the raw document is served as YAML", func() {
			w := serve(http.MethodGet, "/openapi.yaml")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/yaml; charset=utf-8")
			So(w.Body.Bytes(), ShouldResemble, OpenAPI)
		})

		Convey("Then the reference page loads ReDoc against the document", func() {
			w := serve(http.MethodGet, "/api-docs")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
			So(w.Body.String(), ShouldContainSubstring, redocBundle)
			So(w.Body.String(), ShouldContainSubstring, "/openapi.yaml")
		})

		Convey("Then only GET is routed", func() {
			So(serve(http.MethodPost, "/openapi.yaml").Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(serve(http.MethodDelete, "/api-docs").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a nil mux", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}

func TestOpenAPIDocument(t *testing.T) {
	Convey("Given the embedded OpenAPI document", t, func() {
		var doc struct {
			OpenAPI    string                    `yaml:"openapi"`
			Paths      map[string]map[string]any `yaml:"paths"`
			Components struct {
				SecuritySchemes map[string]any `yaml:"securitySchemes"`
				Schemas         map[string]any `yaml:"schemas"`
			} `yaml:"components"`
		}
		So(yaml.Unmarshal(OpenAPI, &doc), ShouldBeNil)

		Convey("Then it is an OpenAPI 3 document with both credentials", func() {
			So(doc.OpenAPI, ShouldStartWith, "3.")
			So(doc.Components.SecuritySchemes, ShouldContainKey, "adminToken")
			So(doc.Components.SecuritySchemes, ShouldContainKey, "evaluatorCode")
		})

		Convey("Then the scoring and results routes are documented", func() {
			for _, p := range []string{"/scores", "/sessions/submit", "/leaderboard", "/selections", "/candidates/import"} {
				So(doc.Paths, ShouldContainKey, p)
			}
		})

		Convey("Then every local schema reference resolves", func() {
			const prefix = "#/components/schemas/"
			for _, line := range strings.Split(string(OpenAPI), "\n") {
				i := strings.Index(line, prefix)
				if i < 0 {
					continue
				}
				name := line[i+len(prefix):]
				name = name[:strings.IndexAny(name+"\"", "\"")]
				So(doc.Components.Schemas, ShouldContainKey, name)
			}
		})
	})
}
