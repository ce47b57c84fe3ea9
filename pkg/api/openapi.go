// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"gopkg.in/yaml.v3"
)

// OpenapiFromValue returns the schema of the json encoding of v
func OpenapiFromValue(name string, v any) (*openapi3.SchemaRef, error) {
	ref, err := openapi3gen.NewSchemaRefForValue(v, openapi3.Schemas{})
	if err != nil {
		return nil, ErrCreateOpenapiSchema{name: name, err: err}
	}
	return ref, nil
}

// Openapi builds the document of a single GET endpoint at path returning
// the json encoding of result
func Openapi(version, path, name string, result any) (*openapi3.T, error) {
	ref, err := OpenapiFromValue(name, result)
	if err != nil {
		return nil, err
	}

	op := openapi3.NewOperation()
	op.OperationID = name
	op.Summary = "Returns the " + name
	op.Responses = openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("The " + name).WithJSONSchemaRef(ref),
	}))

	return &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "flowtrace",
			Description: "Results of flow explorations",
			Version:     version,
		},
		Paths: openapi3.NewPaths(openapi3.WithPath(path, &openapi3.PathItem{Get: op})),
	}, nil
}

// OpenapiHandler serves the yaml encoding of doc
func OpenapiHandler(doc *openapi3.T) (http.HandlerFunc, error) {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return nil, ErrCreateOpenapiSchema{name: "openapi document", err: err}
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}, nil
}
