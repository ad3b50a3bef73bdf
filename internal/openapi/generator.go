// Package openapi generates the OpenAPI 3.1 document describing the Maktaba
// HTTP surface: the public book gateway and the session-authenticated
// management API.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/maktabahq/maktaba/internal/model"
)

// Generate builds the spec. libraries is the set of registered provider
// tags; it becomes the enum on the gateway's provider parameter so the
// document always reflects what this deployment can actually serve.
func Generate(libraries []model.Library) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Maktaba API",
			Description: "API gateway for Islamic text libraries. Register apps, issue scoped API keys, and fetch books through a single endpoint.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: "/"},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	// Two distinct credentials: issued API keys on the gateway, session JWTs
	// on the management API. Both travel as bearer tokens.
	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "http",
			Scheme:      "bearer",
			Description: "Issued API key (mk_ prefix).",
		},
	}
	doc.Components.SecuritySchemes["session"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Dashboard session token.",
		},
	}

	registerSchemas(doc)
	doc.Paths = openapi3.NewPaths()
	addGatewayPaths(doc, libraries)
	addAuthPaths(doc)
	addAppPaths(doc)
	addKeyPaths(doc)

	return doc, nil
}

func registerSchemas(doc *openapi3.T) {
	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"reason":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
			},
		},
	}

	doc.Components.Schemas["Book"] = objectSchema(openapi3.Schemas{
		"id":       stringProp(""),
		"title":    stringProp(""),
		"author":   stringProp(""),
		"content":  stringProp(""),
		"metadata": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
	})

	doc.Components.Schemas["Library"] = objectSchema(openapi3.Schemas{
		"id":          stringProp("Provider tag, e.g. shamela.ws."),
		"label":       stringProp(""),
		"description": stringProp(""),
		"url":         stringProp(""),
	})

	doc.Components.Schemas["App"] = objectSchema(openapi3.Schemas{
		"id":          stringProp(""),
		"user_id":     stringProp(""),
		"name":        stringProp(""),
		"description": stringProp(""),
		"libraries": &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: stringProp(""),
			},
		},
		"created_at": stringProp(""),
		"updated_at": stringProp(""),
	})

	doc.Components.Schemas["APIKey"] = objectSchema(openapi3.Schemas{
		"id":           stringProp(""),
		"app_id":       stringProp(""),
		"key_prefix":   stringProp("First characters of the secret, for display."),
		"name":         stringProp(""),
		"created_at":   stringProp(""),
		"last_used_at": stringProp(""),
		"expires_at":   stringProp(""),
	})

	doc.Components.Schemas["User"] = objectSchema(openapi3.Schemas{
		"id":         stringProp(""),
		"email":      stringProp(""),
		"name":       stringProp(""),
		"is_active":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
		"created_at": stringProp(""),
	})
}

func addGatewayPaths(doc *openapi3.T, libraries []model.Library) {
	providerEnum := make([]interface{}, 0, len(libraries))
	for _, lib := range libraries {
		providerEnum = append(providerEnum, string(lib))
	}

	bookOp := &openapi3.Operation{
		Tags:        []string{"gateway"},
		Summary:     "Fetch a book",
		Description: "Proxies the lookup to the provider named by the provider parameter. Requires an API key entitled to that library.",
		OperationID: "get_book",
		Security:    securityWith("apiKey"),
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: openapi3.NewPathParameter("bookID").
					WithDescription("Provider book identifier (letters, numbers, hyphens, underscores).").
					WithSchema(openapi3.NewStringSchema()),
			},
			&openapi3.ParameterRef{
				Value: openapi3.NewQueryParameter("provider").
					WithRequired(true).
					WithDescription("Library to fetch from.").
					WithSchema(&openapi3.Schema{Type: &openapi3.Types{"string"}, Enum: providerEnum}),
			},
		},
		Responses: newResponses("200", "The requested book", wrappedSchema("book", "#/components/schemas/Book"), "400", "401", "403", "502"),
	}
	doc.Paths.Set("/v1/books/{bookID}", &openapi3.PathItem{Get: bookOp})

	doc.Paths.Set("/v1/libraries", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"gateway"},
			Summary:     "List available libraries",
			OperationID: "list_libraries",
			Responses:   newResponses("200", "Registered libraries", listSchema("#/components/schemas/Library")),
		},
	})
}

func addAuthPaths(doc *openapi3.T) {
	credentialsBody := requestBody("Email and password", openapi3.Schemas{
		"email":    stringProp(""),
		"password": stringProp(""),
	}, "email", "password")

	doc.Paths.Set("/api/v1/auth/signup", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Register a developer account",
			OperationID: "signup",
			RequestBody: requestBody("New account details", openapi3.Schemas{
				"email":    stringProp(""),
				"password": stringProp("At least 6 characters."),
				"name":     stringProp(""),
			}, "email", "password"),
			Responses: newResponses("201", "Created account", wrappedSchema("user", "#/components/schemas/User"), "400", "409"),
		},
	})

	doc.Paths.Set("/api/v1/auth/session", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Log in",
			OperationID: "login",
			RequestBody: credentialsBody,
			Responses: newResponses("200", "Session token", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"session_token": stringProp(""),
						"token_type":    stringProp(""),
						"expires_in":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
						"user":          openapi3.NewSchemaRef("#/components/schemas/User", nil),
					},
				},
			}, "400", "401"),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Log out",
			OperationID: "logout",
			Responses:   newResponses("200", "Session ended", successSchema()),
		},
	})
}

func addAppPaths(doc *openapi3.T) {
	appBody := requestBody("App details", openapi3.Schemas{
		"name":        stringProp("At most 100 characters."),
		"description": stringProp(""),
		"libraries": &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: stringProp("Provider tag."),
			},
		},
	}, "name", "libraries")

	doc.Paths.Set("/api/v1/apps", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"apps"},
			Summary:     "List apps",
			OperationID: "list_apps",
			Security:    securityWith("session"),
			Responses:   newResponses("200", "The owner's apps", listSchema("#/components/schemas/App"), "401"),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"apps"},
			Summary:     "Register an app",
			OperationID: "create_app",
			Security:    securityWith("session"),
			RequestBody: appBody,
			Responses:   newResponses("201", "Created app", wrappedSchema("app", "#/components/schemas/App"), "400", "401"),
		},
	})

	doc.Paths.Set("/api/v1/apps/{appID}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"apps"},
			Summary:     "Get an app",
			OperationID: "get_app",
			Security:    securityWith("session"),
			Parameters:  pathParam("appID"),
			Responses:   newResponses("200", "The app", wrappedSchema("app", "#/components/schemas/App"), "401", "404"),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"apps"},
			Summary:     "Delete an app",
			Description: "Revokes every key issued under the app before removing it.",
			OperationID: "delete_app",
			Security:    securityWith("session"),
			Parameters:  pathParam("appID"),
			Responses:   newResponses("200", "Deleted", successSchema(), "401", "404"),
		},
	})
}

func addKeyPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/api-keys", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "List API keys",
			OperationID: "list_keys",
			Security:    securityWith("session"),
			Responses:   newResponses("200", "Key metadata across the owner's apps", listSchema("#/components/schemas/APIKey"), "401"),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "Issue an API key",
			Description: "The raw secret appears in this response only and is not retrievable afterwards.",
			OperationID: "create_key",
			Security:    securityWith("session"),
			RequestBody: requestBody("Key details", openapi3.Schemas{
				"app_id":     stringProp(""),
				"name":       stringProp("At most 50 characters."),
				"expires_at": stringProp("RFC 3339 timestamp; omit for no expiry."),
			}, "app_id", "name"),
			Responses: newResponses("201", "The new key and its secret", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"api_key": openapi3.NewSchemaRef("#/components/schemas/APIKey", nil),
						"key":     stringProp("The raw secret, shown once."),
					},
				},
			}, "400", "401", "404"),
		},
	})

	doc.Paths.Set("/api/v1/api-keys/{keyID}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "Get an API key",
			OperationID: "get_key",
			Security:    securityWith("session"),
			Parameters:  pathParam("keyID"),
			Responses:   newResponses("200", "Key metadata", wrappedSchema("api_key", "#/components/schemas/APIKey"), "401", "404"),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"keys"},
			Summary:     "Revoke an API key",
			OperationID: "delete_key",
			Security:    securityWith("session"),
			Parameters:  pathParam("keyID"),
			Responses:   newResponses("200", "Revoked", successSchema(), "401", "404"),
		},
	})
}

func objectSchema(props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
		},
	}
}

func stringProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description},
	}
}

// wrappedSchema builds the single-resource envelope: {"<key>": {...}}.
func wrappedSchema(key, ref string) *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		key: openapi3.NewSchemaRef(ref, nil),
	})
}

// listSchema builds the list envelope: {"resource": [...], "count": n}.
func listSchema(ref string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": {
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: openapi3.NewSchemaRef(ref, nil),
					},
				},
				"count": {Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
			},
		},
	}
}

func successSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"success": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
	})
}

func requestBody(description string, props openapi3.Schemas, required ...string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content: openapi3.NewContentWithJSONSchemaRef(&openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:       &openapi3.Types{"object"},
					Properties: props,
					Required:   required,
				},
			}),
		},
	}
}

func pathParam(name string) openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
		},
	}
}

func securityWith(scheme string) *openapi3.SecurityRequirements {
	reqs := openapi3.NewSecurityRequirements()
	reqs.With(openapi3.SecurityRequirement{scheme: {}})
	return reqs
}

// newResponses builds a Responses map with one success response plus the
// named error statuses, all sharing the ErrorResponse schema.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, errorCodes ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	descriptions := map[string]string{
		"400": "Bad request",
		"401": "Unauthorized",
		"403": "Forbidden",
		"404": "Not found",
		"409": "Conflict",
		"502": "Upstream provider failure",
	}
	for _, code := range errorCodes {
		desc, ok := descriptions[code]
		if !ok {
			desc = "Error"
		}
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	return responses
}
