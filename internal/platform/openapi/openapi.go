// Package openapi generates an OpenAPI 3.0 document from the routes
// registered on the echo instance.
package openapi

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Doc annotates one operation. Routes without a Doc still appear in the
// document with a generated summary.
type Doc struct {
	Summary string
	Query   []string
	Body    string // component schema name of the request body
}

// Generator builds the document on demand, so routes registered after the
// generator was created are included.
type Generator struct {
	title    string
	version  string
	baseURL  string
	routes   func() []*echo.Route
	isPublic func(path string) bool
	docs     map[string]Doc
}

// NewGenerator creates a generator. routes is usually e.Routes; isPublic
// marks routes that need no bearer token.
func NewGenerator(title, version, baseURL string, routes func() []*echo.Route, isPublic func(string) bool) *Generator {
	if isPublic == nil {
		isPublic = func(string) bool { return false }
	}
	return &Generator{
		title:    title,
		version:  version,
		baseURL:  baseURL,
		routes:   routes,
		isPublic: isPublic,
		docs:     make(map[string]Doc),
	}
}

// Describe attaches documentation to the operation at method and path (echo
// syntax, e.g. "/api/patients/:id").
func (g *Generator) Describe(method, path string, d Doc) {
	g.docs[method+" "+path] = d
}

var documentedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

var pathParam = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

// oasPath converts an echo path to OpenAPI syntax and returns its parameters.
func oasPath(path string) (string, []string) {
	var params []string
	for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
		params = append(params, m[1])
	}
	return pathParam.ReplaceAllString(path, "{$1}"), params
}

// tagOf groups operations by their first resource segment.
func tagOf(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) >= 2 && segs[0] == "api" {
		return segs[1]
	}
	return "system"
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	routes := g.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	paths := make(map[string]interface{})
	tags := make(map[string]bool)
	for _, r := range routes {
		if !documentedMethods[r.Method] || strings.Contains(r.Path, "*") {
			continue
		}
		p, params := oasPath(r.Path)
		item, ok := paths[p].(map[string]interface{})
		if !ok {
			item = make(map[string]interface{})
			paths[p] = item
		}
		tag := tagOf(r.Path)
		tags[tag] = true
		item[strings.ToLower(r.Method)] = g.operation(r, tag, params)
	}

	tagList := make([]map[string]string, 0, len(tags))
	for t := range tags {
		tagList = append(tagList, map[string]string{"name": t})
	}
	sort.Slice(tagList, func(i, j int) bool { return tagList[i]["name"] < tagList[j]["name"] })

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   g.title,
			"version": g.version,
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"tags":  tagList,
		"paths": paths,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
			"schemas": componentSchemas(),
		},
	}
}

func (g *Generator) operation(r *echo.Route, tag string, params []string) map[string]interface{} {
	d, ok := g.docs[r.Method+" "+r.Path]
	if !ok || d.Summary == "" {
		d.Summary = r.Method + " " + r.Path
	}

	var parameters []map[string]interface{}
	for _, name := range params {
		parameters = append(parameters, map[string]interface{}{
			"name":     name,
			"in":       "path",
			"required": true,
			"schema":   map[string]string{"type": "integer"},
		})
	}
	for _, name := range d.Query {
		parameters = append(parameters, map[string]interface{}{
			"name":   name,
			"in":     "query",
			"schema": map[string]string{"type": "string"},
		})
	}

	op := map[string]interface{}{
		"summary":     d.Summary,
		"operationId": operationID(r.Method, r.Path),
		"tags":        []string{tag},
		"responses": map[string]interface{}{
			"default": envelopeResponse("Error", "Error"),
			"200":     envelopeResponse("Success", "Envelope"),
		},
	}
	if len(parameters) > 0 {
		op["parameters"] = parameters
	}
	if d.Body != "" {
		op["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]interface{}{"$ref": "#/components/schemas/" + d.Body},
				},
			},
		}
	}
	if g.isPublic(r.Path) {
		op["security"] = []map[string][]string{}
	} else {
		op["security"] = []map[string][]string{{"bearerAuth": {}}}
	}
	return op
}

// operationID derives a stable camel-case id such as getApiPatientsId.
func operationID(method, path string) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(method))
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == ':' || r == '-' || r == '.'
	}) {
		sb.WriteString(strings.ToUpper(seg[:1]) + seg[1:])
	}
	return sb.String()
}

func envelopeResponse(description, schema string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{"$ref": "#/components/schemas/" + schema},
			},
		},
	}
}

func componentSchemas() map[string]interface{} {
	str := map[string]string{"type": "string"}
	integer := map[string]string{"type": "integer"}
	dateTime := map[string]string{"type": "string", "format": "date-time"}

	return map[string]interface{}{
		"Envelope": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"success":    map[string]string{"type": "boolean"},
				"message":    str,
				"data":       map[string]interface{}{},
				"user":       map[string]interface{}{},
				"token":      str,
				"pagination": map[string]string{"$ref": "#/components/schemas/Pagination"},
			},
		},
		"Error": map[string]interface{}{
			"type":     "object",
			"required": []string{"success", "message"},
			"properties": map[string]interface{}{
				"success": map[string]string{"type": "boolean"},
				"message": str,
				"error":   str,
			},
		},
		"Pagination": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"page":        integer,
				"limit":       integer,
				"total":       integer,
				"total_pages": integer,
				"has_next":    map[string]string{"type": "boolean"},
			},
		},
		"LoginRequest": map[string]interface{}{
			"type":     "object",
			"required": []string{"email", "password"},
			"properties": map[string]interface{}{
				"email":    str,
				"password": str,
			},
		},
		"RegisterRequest": map[string]interface{}{
			"type":     "object",
			"required": []string{"name", "email", "password", "role"},
			"properties": map[string]interface{}{
				"name":        str,
				"email":       str,
				"password":    str,
				"role":        map[string]interface{}{"type": "string", "enum": []string{"ADMIN", "DOCTOR", "NURSE", "PATIENT"}},
				"hospital_id": integer,
				"phone":       str,
			},
		},
		"Patient": map[string]interface{}{
			"type":     "object",
			"required": []string{"full_name"},
			"properties": map[string]interface{}{
				"hospital_id":       integer,
				"full_name":         str,
				"dob":               map[string]string{"type": "string", "format": "date"},
				"gender":            str,
				"phone":             str,
				"email":             str,
				"address":           str,
				"emergency_contact": str,
				"blood_type":        str,
				"allergies":         str,
			},
		},
		"Appointment": map[string]interface{}{
			"type":     "object",
			"required": []string{"patient_id", "doctor_id", "appointment_time"},
			"properties": map[string]interface{}{
				"patient_id":       integer,
				"doctor_id":        integer,
				"appointment_time": dateTime,
				"duration_minutes": integer,
				"status":           map[string]interface{}{"type": "string", "enum": []string{"SCHEDULED", "COMPLETED", "CANCELLED", "NO_SHOW"}},
				"reason":           str,
				"notes":            str,
			},
		},
	}
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Hospital Management API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes registers GET /docs and GET /docs/openapi.json on group.
func (g *Generator) RegisterRoutes(group *echo.Group) {
	group.GET("/docs/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	group.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
