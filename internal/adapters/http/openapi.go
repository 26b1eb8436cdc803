package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

const apiVersion = "1.0.0"

var openAPIDocument = sync.OnceValues(func() ([]byte, error) {
	doc := buildOpenAPI()
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return json.Marshal(doc)
})

var openAPIYAMLDocument = sync.OnceValues(func() ([]byte, error) {
	raw, err := openAPIDocument()
	if err != nil {
		return nil, err
	}
	return jsonToYAML(raw)
})

func serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	serveOpenAPI(w, r, "application/json", openAPIDocument)
}

func serveOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	serveOpenAPI(w, r, "application/yaml", openAPIYAMLDocument)
}

func serveOpenAPI(w http.ResponseWriter, r *http.Request, contentType string, render func() ([]byte, error)) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	body, err := render()
	if err != nil {
		slog.Error("openapi_render_failed", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, nil, "Failed to render API description")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func buildOpenAPI() *openapi3.T {
	nullableString := openapi3.NewStringSchema().WithNullable()

	analysisResult := openapi3.NewObjectSchema().
		WithProperty("csv_download", nullableString).
		WithProperty("json_download", nullableString).
		WithProperty("num_records", openapi3.NewInt64Schema().WithNullable()).
		WithProperty("preview", openapi3.NewSchema().WithNullable()).
		WithProperty("raw", openapi3.NewSchema().WithNullable())

	analysisRecord := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("filename", openapi3.NewStringSchema()).
		WithProperty("size_bytes", openapi3.NewInt64Schema()).
		WithProperty("page_count", openapi3.NewIntegerSchema()).
		WithProperty("status", openapi3.NewStringSchema().WithEnum("succeeded", "failed")).
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("csv_download", openapi3.NewStringSchema()).
		WithProperty("json_download", openapi3.NewStringSchema()).
		WithProperty("num_records", openapi3.NewInt64Schema()).
		WithProperty("preview_rows", openapi3.NewIntegerSchema()).
		WithProperty("duration_ms", openapi3.NewFloat64Schema()).
		WithProperty("created_at", openapi3.NewDateTimeSchema())

	envelopeOf := func(data *openapi3.Schema) *openapi3.Schema {
		return openapi3.NewObjectSchema().
			WithProperty("statusCode", openapi3.NewIntegerSchema()).
			WithProperty("data", data.WithNullable()).
			WithProperty("message", openapi3.NewStringSchema())
	}
	errorEnvelope := envelopeOf(openapi3.NewObjectSchema())

	jsonResponse := func(description string, schema *openapi3.Schema) *openapi3.Response {
		return openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)
	}

	rows := openapi3.NewArraySchema().WithItems(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))

	analyze := openapi3.NewOperation()
	analyze.OperationID = "AnalyzeDocument"
	analyze.Summary = "Upload a document and forward it to the analysis service"
	analyze.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.NewContentWithFormDataSchema(openapi3.NewObjectSchema().
			WithProperty("file", openapi3.NewStringSchema().WithFormat("binary")).
			WithProperty("message", openapi3.NewStringSchema())))}
	analyze.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: jsonResponse("Analysis result", envelopeOf(analysisResult))}),
		openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{Value: jsonResponse("Missing or invalid upload", errorEnvelope)}),
		openapi3.WithStatus(http.StatusInternalServerError, &openapi3.ResponseRef{Value: jsonResponse("Analysis service failure", errorEnvelope)}),
	)

	download := openapi3.NewOperation()
	download.OperationID = "DownloadFile"
	download.Summary = "Stream a result file from the analysis service"
	download.AddParameter(openapi3.NewQueryParameter("file").WithRequired(true).WithSchema(openapi3.NewStringSchema()))
	download.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("File stream")}),
		openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{Value: jsonResponse("Missing or invalid file parameter", errorEnvelope)}),
		openapi3.WithStatus(http.StatusInternalServerError, &openapi3.ResponseRef{Value: jsonResponse("Analysis service failure", errorEnvelope)}),
	)

	export := openapi3.NewOperation()
	export.OperationID = "ExportTable"
	export.Summary = "Render rows as a CSV or XLSX attachment"
	export.AddParameter(openapi3.NewQueryParameter("format").WithSchema(openapi3.NewStringSchema().WithEnum("csv", "xlsx")))
	export.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchema(openapi3.NewObjectSchema().WithProperty("rows", rows))}
	export.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Attachment")}),
		openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{Value: jsonResponse("Invalid rows or format", errorEnvelope)}),
	)

	getAnalysis := openapi3.NewOperation()
	getAnalysis.OperationID = "GetAnalysis"
	getAnalysis.Summary = "Read a recorded analysis"
	getAnalysis.AddParameter(openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema()))
	getAnalysis.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: jsonResponse("Analysis record", envelopeOf(analysisRecord))}),
		openapi3.WithStatus(http.StatusNotFound, &openapi3.ResponseRef{Value: jsonResponse("Unknown analysis", errorEnvelope)}),
	)

	listAnalyses := openapi3.NewOperation()
	listAnalyses.OperationID = "ListAnalyses"
	listAnalyses.Summary = "List recorded analyses, newest first"
	listAnalyses.AddParameter(openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema().WithMin(0).WithMax(500)))
	listAnalyses.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: jsonResponse("Analysis records", envelopeOf(openapi3.NewArraySchema().WithItems(analysisRecord)))}),
		openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{Value: jsonResponse("Invalid limit", errorEnvelope)}),
	)

	health := openapi3.NewOperation()
	health.OperationID = "Healthz"
	health.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: jsonResponse("Service is up", openapi3.NewObjectSchema().
			WithProperty("status", openapi3.NewStringSchema()).
			WithProperty("breakers", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())))}),
	)

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "PDF analysis gateway",
			Version: apiVersion,
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/analyze", &openapi3.PathItem{Post: analyze}),
			openapi3.WithPath("/download", &openapi3.PathItem{Get: download}),
			openapi3.WithPath("/export", &openapi3.PathItem{Post: export}),
			openapi3.WithPath("/v1/analyses", &openapi3.PathItem{Get: listAnalyses}),
			openapi3.WithPath("/v1/analyses/{id}", &openapi3.PathItem{Get: getAnalysis}),
			openapi3.WithPath("/healthz", &openapi3.PathItem{Get: health}),
		),
	}
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping key order.
func jsonToYAML(raw []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("decode openapi json: %w", err)
	}
	clearStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("encode openapi yaml: %w", err)
	}
	return out, nil
}

func clearStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		clearStyle(child)
	}
}
